package transport

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stratosdb/pagestore/conf"
	"github.com/stratosdb/pagestore/errors"
	log "github.com/stratosdb/pagestore/logger"
)

// Endpoint is the resolved page server address. It is immutable after parse.
type Endpoint struct {
	Host string
	Port int
}

// ParseEndpoint parses a host:port address string. A missing, empty or
// non-numeric port defaults to conf.DefaultPort.
func ParseEndpoint(address string) Endpoint {
	host, portStr, found := strings.Cut(address, ":")
	port := conf.DefaultPort
	if found {
		p, err := strconv.Atoi(portStr)
		if err == nil && p > 0 {
			port = p
		}
	}
	return Endpoint{Host: host, Port: port}
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

type dialFunc func(address string, timeout time.Duration) (net.Conn, error)

func netDial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", address, timeout)
}

// Session owns the single reusable connection to the page server and performs
// framed request/response exchanges on it, reconnecting and retrying on
// transient failures. A Session assumes single caller access - the layer
// above serializes use of it. There is no locking here.
type Session struct {
	endpoint Endpoint
	cfg      *conf.Config
	conn     net.Conn
	dial     dialFunc
	sleep    func(time.Duration)
}

func NewSession(endpoint Endpoint, cfg *conf.Config) *Session {
	return &Session{
		endpoint: endpoint,
		cfg:      cfg,
		dial:     netDial,
		sleep:    time.Sleep,
	}
}

func (s *Session) Endpoint() Endpoint {
	return s.endpoint
}

// Close closes the connection if one is open. The session can still be used
// afterwards - the next exchange reconnects.
func (s *Session) Close() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			// Connection may already be closed by the peer
		}
		s.conn = nil
	}
}

var headerSeparators = [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")}

// Exchange sends one framed request and reads the response into respBuf.
// On failure the whole exchange is retried with exponential backoff, up to
// the configured retry budget, reconnecting first. On success the returned
// slice is the response body within respBuf. The connection is retained for
// the next exchange.
//
// A response that fills respBuf without containing the header/body separator
// is a hard failure, not retried: retrying would just truncate again, and a
// partial body must never be parsed.
func (s *Session) Exchange(method string, path string, body string, respBuf []byte) ([]byte, error) {
	request := s.buildRequest(method, path, body)
	maxRetries := s.cfg.MaxRetries
	if maxRetries < 0 {
		// conf.NoRetries
		maxRetries = 0
	}
	var lastErr error
	for retry := 0; retry <= maxRetries; retry++ {
		if retry > 0 {
			// Base delay doubling on each retry
			s.sleep(s.cfg.RetryDelay << (retry - 1))
		}
		if s.conn == nil {
			conn, err := s.dial(s.endpoint.String(), s.cfg.ConnectTimeout)
			if err != nil {
				lastErr = pkgerrors.WithStack(err)
				log.Debugf("pagestore: connect to %s failed: %v", s.endpoint, err)
				continue
			}
			s.conn = conn
		}
		respBody, retryable, err := s.exchangeOnce(request, respBuf)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		// Mark for reconnect - the connection may be half dead
		s.Close()
	}
	var perr errors.PageStoreError
	if errors.As(lastErr, &perr) {
		return nil, perr
	}
	return nil, errors.NewConnectionError("exchange with page server %s failed after %d attempts: %v",
		s.endpoint, maxRetries+1, lastErr)
}

func (s *Session) buildRequest(method string, path string, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&b, "Host: %s\r\n", s.endpoint)
	b.WriteString("Content-Type: application/json\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Connection: keep-alive\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// exchangeOnce performs a single send/receive on the current connection.
// The second return reports whether a failure is worth a reconnect and retry.
func (s *Session) exchangeOnce(request []byte, respBuf []byte) ([]byte, bool, error) {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.ConnectTimeout)); err != nil {
		return nil, true, pkgerrors.WithStack(err)
	}
	if _, err := s.conn.Write(request); err != nil {
		return nil, true, pkgerrors.Wrap(err, "failed to send request to page server")
	}
	total := 0
	sepEnd := -1
	for total < len(respBuf) {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return nil, true, pkgerrors.WithStack(err)
		}
		n, err := s.conn.Read(respBuf[total:])
		total += n
		if sepEnd = findSeparator(respBuf[:total]); sepEnd >= 0 {
			break
		}
		if err != nil {
			return nil, true, pkgerrors.Wrap(err, "failed to read response from page server")
		}
	}
	if sepEnd < 0 {
		// Buffer exhausted without seeing the header/body separator
		return nil, false, errors.NewPageStoreErrorf(errors.ResponseTruncated,
			"page server response exceeded %d bytes", len(respBuf))
	}
	head := respBuf[:sepEnd]
	if !bytes.Contains(head, []byte("HTTP/1.1 200")) && !bytes.Contains(head, []byte("HTTP/1.0 200")) {
		return nil, true, errors.NewProtocolError("page server returned non-success status: %s", statusLine(head))
	}
	return respBuf[sepEnd:total], false, nil
}

// findSeparator returns the offset just past the header/body separator, or -1.
func findSeparator(b []byte) int {
	for _, sep := range headerSeparators {
		if idx := bytes.Index(b, sep); idx >= 0 {
			return idx + len(sep)
		}
	}
	return -1
}

func statusLine(head []byte) string {
	if idx := bytes.IndexByte(head, '\n'); idx >= 0 {
		head = head[:idx]
	}
	return string(bytes.TrimRight(head, "\r"))
}
