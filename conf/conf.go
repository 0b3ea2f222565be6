package conf

import (
	"time"

	"github.com/stratosdb/pagestore/errors"
)

const (
	DefaultPort            = 8080
	DefaultConnectTimeout  = 5 * time.Second
	DefaultReadTimeout     = 10 * time.Second
	DefaultMaxRetries      = 2
	DefaultRetryDelay      = 100 * time.Millisecond
	DefaultMaxResponseSize = 64 * 1024
	DefaultPageSize        = 16 * 1024

	// NoRetries disables retrying entirely. MaxRetries zero means the default
	// retry budget, so no-retry needs its own value.
	NoRetries = -1
)

type Config struct {
	// Address of the page server as host:port. Empty address means the client
	// starts disabled, which is a valid steady state.
	Address string `help:"Address of the page server (host:port). Empty disables the client." default:""`

	ConnectTimeout  time.Duration `help:"Timeout for establishing a connection to the page server." default:"5s"`
	ReadTimeout     time.Duration `help:"Timeout for a single read on the page server connection." default:"10s"`
	MaxRetries      int           `help:"Number of times a failed exchange is retried before giving up. 0 means the default, -1 disables retries." default:"2"`
	RetryDelay      time.Duration `help:"Base delay between retries, doubled on each retry." default:"100ms"`
	MaxResponseSize int           `help:"Maximum size in bytes of a page server response." default:"65536"`
	PageSize        int           `help:"Page size in bytes." default:"16384"`
}

func (c *Config) ApplyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxResponseSize == 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

func (c *Config) Validate() error {
	if c.ConnectTimeout < 0 {
		return errors.NewInvalidConfigurationError("connect-timeout must not be negative")
	}
	if c.ReadTimeout < 0 {
		return errors.NewInvalidConfigurationError("read-timeout must not be negative")
	}
	if c.MaxRetries < NoRetries {
		return errors.NewInvalidConfigurationError("max-retries must be NoRetries, zero for the default, or positive")
	}
	if c.RetryDelay <= 0 {
		return errors.NewInvalidConfigurationError("retry-delay must be greater than zero")
	}
	if c.MaxResponseSize <= 0 {
		return errors.NewInvalidConfigurationError("max-response-size must be greater than zero")
	}
	if c.PageSize <= 0 {
		return errors.NewInvalidConfigurationError("page-size must be greater than zero")
	}
	return nil
}
