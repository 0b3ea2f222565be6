package devserver

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/stratosdb/pagestore/common"
	log "github.com/stratosdb/pagestore/logger"
)

// Server is a development page server holding pages and WAL records in
// memory. It serves the same endpoints as a production page server and is
// used as the fixture for client tests and for local runs of the storage
// engine.
type Server struct {
	lock          sync.Mutex
	listenAddress string
	listener      net.Listener
	httpServer    *http.Server
	store         *InMemStore
	started       bool
	closeWg       sync.WaitGroup
}

func NewServer(listenAddress string) *Server {
	return &Server{
		listenAddress: listenAddress,
		store:         NewInMemStore(0),
	}
}

func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return nil
	}
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return err
	}
	s.listener = listener
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/get_page", s.handleGetPage)
	mux.HandleFunc("/api/v1/stream_wal", s.handleStreamWAL)
	mux.HandleFunc("/api/v1/ping", s.handlePing)
	s.httpServer = &http.Server{Handler: mux}
	s.closeWg.Add(1)
	common.Go(func() {
		defer s.closeWg.Done()
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			log.Errorf("dev page server failed to serve: %v", err)
		}
	})
	s.started = true
	log.Debugf("started dev page server on %s", s.ListenAddress())
	return nil
}

func (s *Server) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.started {
		return nil
	}
	if err := s.httpServer.Close(); err != nil {
		log.Warnf("failed to close dev page server %v", err)
	}
	s.closeWg.Wait()
	s.started = false
	log.Debugf("stopped dev page server on %s", s.ListenAddress())
	return nil
}

// ListenAddress returns the actual listen address, resolving a requested
// ephemeral port.
func (s *Server) ListenAddress() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.listenAddress
}

func (s *Server) Store() *InMemStore {
	return s.store
}

type getPageResponse struct {
	Status   string `json:"status"`
	PageData string `json:"page_data,omitempty"`
	PageLSN  uint64 `json:"page_lsn,omitempty"`
	Error    string `json:"error,omitempty"`
}

type streamWALResponse struct {
	Status         string `json:"status"`
	LastAppliedLSN uint64 `json:"last_applied_lsn,omitempty"`
	Error          string `json:"error,omitempty"`
}

type pingResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	req := gjson.ParseBytes(body)
	spaceID := uint32(req.Get("space_id").Uint())
	pageNo := uint32(req.Get("page_no").Uint())
	lsn := req.Get("lsn").Uint()
	if log.DebugEnabled {
		log.Debugf("dev page server get_page %s: space=%d page=%d lsn=%d", uuid.New().String(), spaceID, pageNo, lsn)
	}
	pageData, pageLSN, ok := s.store.GetPage(spaceID, pageNo)
	if !ok {
		writeJSON(w, http.StatusNotFound, getPageResponse{
			Status: "error",
			Error:  "page not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, getPageResponse{
		Status:   "success",
		PageData: base64.StdEncoding.EncodeToString(pageData),
		PageLSN:  pageLSN,
	})
}

func (s *Server) handleStreamWAL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	req := gjson.ParseBytes(body)
	lsn := req.Get("lsn").Uint()
	walData, err := base64.StdEncoding.DecodeString(req.Get("wal_data").String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, streamWALResponse{
			Status: "error",
			Error:  "invalid base64 wal_data",
		})
		return
	}
	lastApplied := s.store.AppendWAL(WALRecord{LSN: lsn, WALData: walData})
	log.Debugf("dev page server received WAL record: lsn=%d len=%d", lsn, len(walData))
	writeJSON(w, http.StatusOK, streamWALResponse{
		Status:         "success",
		LastAppliedLSN: lastApplied,
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, pingResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("dev page server failed to write response: %v", err)
	}
}
