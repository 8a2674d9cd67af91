package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dk0164/TMS-MONITOR/auth"
	"github.com/dk0164/TMS-MONITOR/core/paginate"
	"github.com/dk0164/TMS-MONITOR/core/state"
)

const (
	// DefaultSourceURL is the published delivery sheet endpoint.
	DefaultSourceURL       = "https://script.google.com/macros/s/AKfycbxQqlOy1VSgUY1X_NbWL8Wkn0KZ5if3uxy9oA_IEGUdwAMx4OhJ0bNHVmR-6aMcdNEPPw/exec"
	DefaultRefreshInterval = 50 * time.Second
	DefaultTimeout         = 15 * time.Second
)

// SourceConfig defines where and how often delivery records are fetched.
type SourceConfig struct {
	URL string `json:"url"`
	// RefreshInterval is the background refresh cadence, e.g. "50s".
	RefreshInterval time.Duration `json:"refresh_interval"`
	// Timeout bounds a single request.
	Timeout  time.Duration `json:"timeout"`
	PageSize int           `json:"page_size"`
	// ConnectivityNotice replaces the message shown when the first load
	// fails.
	ConnectivityNotice string `json:"connectivity_notice"`
	// Auth enables OAuth2 client credentials for the source request.
	Auth auth.Conf `json:"auth"`
}

// SetDefaults applies sane defaults.
func (c *SourceConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = DefaultSourceURL
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize == 0 {
		c.PageSize = paginate.DefaultPageSize
	}
	if c.ConnectivityNotice == "" {
		c.ConnectivityNotice = state.ConnectivityNotice
	}
}

// Validate checks mandatory fields.
func (c SourceConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) URL", c.URL)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh_interval must be at least 1s, got %s", c.RefreshInterval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Auth.Enabled() && (c.Auth.ClientID == "" || c.Auth.TokenURL == "") {
		return fmt.Errorf("auth requires both client_id and token_url")
	}
	return nil
}
