package client

import (
	"sync"
	"sync/atomic"

	"github.com/stratosdb/pagestore/conf"
	"github.com/stratosdb/pagestore/errors"
	log "github.com/stratosdb/pagestore/logger"
	"github.com/stratosdb/pagestore/transport"
	"github.com/stratosdb/pagestore/wire"
)

const (
	getPagePath   = "/api/v1/get_page"
	streamWALPath = "/api/v1/stream_wal"
	pingPath      = "/api/v1/ping"

	statusSuccess = "success"

	// Ping and WAL stream responses carry no payload, so a small buffer is enough
	smallResponseSize = 1024
)

// PageRequest identifies one page version to fetch.
type PageRequest struct {
	SpaceID uint32
	PageNo  uint32
	LSN     uint64
}

// PageResult receives the outcome of one batched fetch. PageData must be
// allocated by the caller, sized to the configured page size - it is written
// in place and never reallocated.
type PageResult struct {
	Err      error
	PageLSN  uint64
	PageData []byte
}

// Client is the page server client used by the storage engine to fetch pages
// and ship WAL records. All operations on a Client are serialized by one
// mutex held for the full duration of an exchange, including retries - the
// underlying connection is never used by two operations at once. IsEnabled
// reads atomic flags and takes no lock, so callers can skip the lock
// entirely when the client is disabled.
type Client struct {
	cfg         conf.Config
	lock        sync.Mutex
	session     *transport.Session
	initialised atomic.Bool
	enabled     atomic.Bool
}

func NewClient(cfg conf.Config) *Client {
	cfg.ApplyDefaults()
	return &Client{cfg: cfg}
}

// Start initializes the client. An empty address leaves the client disabled,
// which is valid: the storage engine runs with local page reads only. A
// configured server that fails the startup ping also leaves the client
// disabled rather than failing startup - Start reports initialization
// errors, not connectivity.
func (c *Client) Start() error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.initialised.Load() {
		return errors.New("page store client already started")
	}
	if c.cfg.Address == "" {
		c.initialised.Store(true)
		c.enabled.Store(false)
		return nil
	}
	endpoint := transport.ParseEndpoint(c.cfg.Address)
	c.session = transport.NewSession(endpoint, &c.cfg)
	c.initialised.Store(true)
	c.enabled.Store(true)
	if !c.ping() {
		log.Warnf("pagestore: page server %s ping failed, disabling client", endpoint)
		c.enabled.Store(false)
		c.session.Close()
		c.session = nil
		return nil
	}
	log.Infof("pagestore: client initialized: %s", c.cfg.Address)
	return nil
}

// Stop closes the connection and clears all client state. Must be called at
// most once per Start.
func (c *Client) Stop() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.enabled.Store(false)
	c.initialised.Store(false)
}

// IsEnabled returns true iff the client is initialized and remote calls
// should be attempted. Lock-free.
func (c *Client) IsEnabled() bool {
	return c.enabled.Load() && c.initialised.Load()
}

// GetPage fetches the page (spaceID, pageNo) at the given LSN into buf,
// which must be pre-sized to the page size. It returns the LSN of the
// returned page version; servers that omit the page_lsn field fall back to
// the requested LSN. Every non-success outcome is surfaced - the caller must
// have a degraded path that treats the page as unavailable.
func (c *Client) GetPage(spaceID uint32, pageNo uint32, lsn uint64, buf []byte) (uint64, error) {
	if !c.IsEnabled() {
		return 0, errors.NewPageStoreError(errors.Unavailable, "page store client is not enabled")
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	pageLSN, err := c.getPage(spaceID, pageNo, lsn, buf)
	if err != nil {
		log.Infof("pagestore: get_page failed: space=%d page=%d lsn=%d: %v", spaceID, pageNo, lsn, err)
	}
	return pageLSN, err
}

func (c *Client) getPage(spaceID uint32, pageNo uint32, lsn uint64, buf []byte) (uint64, error) {
	// The lock-free fast path can race a failed Start or a Stop tearing the
	// session down - re-check under the lock
	if c.session == nil {
		return 0, errors.NewPageStoreError(errors.Unavailable, "page store client is not enabled")
	}
	if len(buf) != c.cfg.PageSize {
		return 0, errors.NewPageStoreErrorf(errors.PayloadError,
			"page buffer is %d bytes, configured page size is %d", len(buf), c.cfg.PageSize)
	}
	respBuf := make([]byte, c.cfg.MaxResponseSize)
	reqBody := wire.EncodeGetPageRequest(spaceID, pageNo, lsn)
	body, err := c.session.Exchange("POST", getPagePath, reqBody, respBuf)
	if err != nil {
		return 0, err
	}
	status, ok := wire.GetStringField(body, "status")
	if !ok {
		return 0, errors.NewProtocolError("get_page response has no status field")
	}
	if status != statusSuccess {
		return 0, errors.NewProtocolError("get_page returned status %q", status)
	}
	pageData, ok := wire.GetStringField(body, "page_data")
	if !ok {
		return 0, errors.NewProtocolError("get_page response has no page_data field")
	}
	decoded := wire.Decode(pageData, buf)
	if decoded == 0 || decoded > len(buf) {
		return 0, errors.NewPageStoreErrorf(errors.PayloadError,
			"get_page payload decoded to %d bytes, page size is %d", decoded, len(buf))
	}
	if pageLSN, ok := wire.GetUint64Field(body, "page_lsn"); ok {
		return pageLSN, nil
	}
	return lsn, nil
}

// StreamWAL ships one WAL record to the page server. The call is synchronous
// and only reads walData for its duration. When the client is disabled this
// is a no-op success: WAL streaming must never block normal write-ahead
// logging.
func (c *Client) StreamWAL(lsn uint64, walData []byte) error {
	if !c.IsEnabled() {
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session == nil {
		// Disabled while we waited for the lock - still a no-op success
		return nil
	}
	respBuf := make([]byte, smallResponseSize)
	reqBody := wire.EncodeStreamWALRequest(lsn, walData)
	_, err := c.session.Exchange("POST", streamWALPath, reqBody, respBuf)
	return err
}

// GetPagesBatch fetches every page in requests, writing outcomes into the
// matching entry of results, and returns the number of successful fetches.
// Results are independent: one failure does not abort the rest. The whole
// batch runs under a single lock acquisition. There is no batched wire
// protocol - pages are fetched one exchange at a time.
func (c *Client) GetPagesBatch(requests []PageRequest, results []PageResult) int {
	if !c.IsEnabled() || len(requests) == 0 || len(requests) != len(results) {
		return 0
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	successCount := 0
	for i, req := range requests {
		pageLSN, err := c.getPage(req.SpaceID, req.PageNo, req.LSN, results[i].PageData)
		results[i].Err = err
		results[i].PageLSN = pageLSN
		if err == nil {
			successCount++
		}
	}
	return successCount
}

// Ping reports whether the page server is reachable. A client disabled by
// configuration reports reachable without any network call - disabled is a
// healthy state.
func (c *Client) Ping() bool {
	if !c.initialised.Load() {
		return false
	}
	if !c.enabled.Load() {
		return true
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ping()
}

func (c *Client) ping() bool {
	if c.session == nil {
		return false
	}
	respBuf := make([]byte, smallResponseSize)
	_, err := c.session.Exchange("GET", pingPath, "", respBuf)
	return err == nil
}
