package nuxeo

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultAPIPath is the REST API mount point below the base URL.
	DefaultAPIPath = "api/v1"

	// DefaultRepository is the document repository used when none is set.
	DefaultRepository = "default"

	// DefaultChunkSize is the chunk size for chunked uploads (10 MiB).
	DefaultChunkSize = 10 * 1024 * 1024
)

// Config holds connection settings for a Client.
type Config struct {
	// BaseURL is the server base URL, e.g. "https://nuxeo.example.com/nuxeo".
	BaseURL string

	// APIPath is the REST API path below BaseURL (default: "api/v1").
	APIPath string

	// Repository selects the document repository (default: "default").
	Repository string

	// Timeout bounds each HTTP request (default: 30s). Per-call contexts
	// can shorten it further.
	Timeout time.Duration

	// TLSVerify controls certificate verification. Disable only for
	// development servers with self-signed certificates.
	TLSVerify *bool

	// ChunkSize is the chunk size used by Uploads.UploadChunked
	// (default: 10 MiB).
	ChunkSize int64

	// CheckParams makes Operations.Execute validate parameters against the
	// server's operation registry before sending.
	CheckParams bool

	// Logger receives request-level debug logging (default: no-op logger).
	Logger hclog.Logger
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		APIPath:    DefaultAPIPath,
		Repository: DefaultRepository,
		Timeout:    30 * time.Second,
		TLSVerify:  &tlsVerify,
		ChunkSize:  DefaultChunkSize,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(checkHTTPURL)),
		validation.Field(&c.APIPath, validation.Required),
		validation.Field(&c.Repository, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(int64(1))),
	)
}

func checkHTTPURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme, got %q", u.Scheme)
	}
	return nil
}

// NewHTTPClient creates the HTTP client used for all requests. Callers that
// need custom transports (proxies, instrumentation) can replace it with
// Client.SetHTTPClient.
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
