package nuxeo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Client talks to one Nuxeo server. It owns the HTTP client, the default
// header map, and the per-resource APIs.
//
// The default header map is plain and unlocked: mutating it while other
// goroutines issue requests through the same Client is a data race. Configure
// headers up front, or give each goroutine its own Client.
type Client struct {
	config *Config
	http   *http.Client
	auth   Authenticator
	logger hclog.Logger

	headers    map[string]string
	repository string
	serverInfo *ServerInfo

	Documents   *DocumentsAPI
	Users       *UsersAPI
	Groups      *GroupsAPI
	Directories *DirectoriesAPI
	Tasks       *TasksAPI
	Workflows   *WorkflowsAPI
	Operations  *OperationsAPI
	Uploads     *UploadsAPI
}

// NewClient creates a client for the server described by cfg, authenticating
// every request with auth. A nil auth sends anonymous requests.
func NewClient(cfg *Config, auth Authenticator) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	defaults := DefaultConfig()
	if cfg.APIPath == "" {
		cfg.APIPath = defaults.APIPath
	}
	if cfg.Repository == "" {
		cfg.Repository = defaults.Repository
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.TLSVerify == nil {
		cfg.TLSVerify = defaults.TLSVerify
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	c := &Client{
		config:     cfg,
		http:       cfg.NewHTTPClient(),
		auth:       auth,
		logger:     cfg.Logger.Named("nuxeo-client"),
		headers:    map[string]string{},
		repository: cfg.Repository,
	}

	c.Operations = newOperationsAPI(c)
	c.Documents = newDocumentsAPI(c)
	c.Users = newUsersAPI(c)
	c.Groups = newGroupsAPI(c)
	c.Directories = newDirectoriesAPI(c)
	c.Tasks = newTasksAPI(c)
	c.Workflows = newWorkflowsAPI(c)
	c.Uploads = newUploadsAPI(c)

	return c, nil
}

// SetHTTPClient replaces the underlying HTTP client. Useful for installing
// instrumented transports or test doubles.
func (c *Client) SetHTTPClient(hc *http.Client) { c.http = hc }

// SetAuth replaces the authenticator used for subsequent requests.
func (c *Client) SetAuth(auth Authenticator) { c.auth = auth }

// Auth returns the current authenticator.
func (c *Client) Auth() Authenticator { return c.auth }

// SetHeader sets a default header sent with every request.
func (c *Client) SetHeader(name, value string) { c.headers[name] = value }

// SetRepository switches the document repository used when building
// document paths.
func (c *Client) SetRepository(name string) {
	if name == "" {
		name = DefaultRepository
	}
	c.repository = name
}

// Repository returns the repository documents are addressed in.
func (c *Client) Repository() string { return c.repository }

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.config.BaseURL }

// Response is one parsed HTTP exchange: status, headers, and the fully
// read body.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the response body into out.
func (r *Response) JSON(out interface{}) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type requestOptions struct {
	headers       map[string]string
	query         url.Values
	body          io.Reader
	jsonBody      interface{}
	contentType   string
	contentLength int64
}

// RequestOption customizes one request.
type RequestOption func(*requestOptions)

// WithHeader adds a header to the request.
func WithHeader(name, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		o.headers[name] = value
	}
}

// WithHeaders adds a set of headers to the request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithQuery adds URL query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// WithQueryParam adds a single URL query parameter.
func WithQueryParam(name, value string) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		o.query.Set(name, value)
	}
}

// WithJSONBody sends v as a JSON request body.
func WithJSONBody(v interface{}) RequestOption {
	return func(o *requestOptions) { o.jsonBody = v }
}

// WithRawBody sends r as the request body with the given content type.
func WithRawBody(r io.Reader, contentType string) RequestOption {
	return func(o *requestOptions) {
		o.body = r
		o.contentType = contentType
	}
}

// WithContentLength fixes the request's Content-Length, for streaming
// bodies whose size is known up front.
func WithContentLength(n int64) RequestOption {
	return func(o *requestOptions) { o.contentLength = n }
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// Request is the single request/response funnel every API call goes
// through. path is relative to the configured base URL. Non-2xx responses
// come back as *HTTPError (or *UnauthorizedError); anything the client
// refuses to send is a *BadQueryError.
func (c *Client) Request(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	if _, ok := allowedMethods[method]; !ok {
		return nil, &BadQueryError{Reason: fmt.Sprintf("unsupported HTTP method %q", method)}
	}

	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	endpoint := joinURL(c.config.BaseURL, path)
	if len(o.query) > 0 {
		endpoint += "?" + o.query.Encode()
	}

	body := o.body
	contentType := o.contentType
	if o.jsonBody != nil {
		encoded, err := json.Marshal(o.jsonBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(encoded)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, */*")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if o.contentLength > 0 {
		req.ContentLength = o.contentLength
	}

	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	c.logger.Debug("sending request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, newHTTPError(resp.StatusCode, respBody)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   respBody,
	}, nil
}

// joinURL joins a base URL and a relative path without doubling slashes.
func joinURL(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// QueryResult is one page of an NXQL search.
type QueryResult struct {
	EntityType       string     `json:"entity-type"`
	Entries          []Document `json:"entries"`
	IsPaginable      bool       `json:"isPaginable"`
	ResultsCount     int64      `json:"resultsCount"`
	PageSize         int        `json:"pageSize"`
	PageCount        int        `json:"pageCount"`
	CurrentPageIndex int        `json:"currentPageIndex"`
	HasError         bool       `json:"hasError"`
	ErrorMessage     string     `json:"errorMessage"`
}

// Query runs an NXQL query through the search endpoint. params carries
// extra page-provider parameters (pageSize, currentPageIndex, properties,
// ...); nil is fine.
func (c *Client) Query(ctx context.Context, nxql string, params url.Values) (*QueryResult, error) {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("query", nxql)

	resp, err := c.Request(ctx, http.MethodGet, c.config.APIPath+"/query", WithQuery(query))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var result QueryResult
	if err := resp.JSON(&result); err != nil {
		return nil, err
	}
	for i := range result.Entries {
		result.Entries[i].api = c.Documents
	}
	return &result, nil
}

// ServerInfo describes the product behind the server, as reported by the
// CMIS repository descriptor.
type ServerInfo struct {
	ProductName    string `json:"productName"`
	ProductVersion string `json:"productVersion"`
	VendorName     string `json:"vendorName"`
	RepositoryID   string `json:"repositoryId"`
}

// FetchServerInfo returns the server's product information, fetched once
// and cached. force refetches; on failure the cached value is kept and the
// error returned.
func (c *Client) FetchServerInfo(ctx context.Context, force bool) (*ServerInfo, error) {
	if c.serverInfo != nil && !force {
		return c.serverInfo, nil
	}

	resp, err := c.Request(ctx, http.MethodGet, "json/cmis")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server info: %w", err)
	}

	var repositories map[string]ServerInfo
	if err := resp.JSON(&repositories); err != nil {
		return nil, err
	}

	if info, ok := repositories[c.repository]; ok {
		c.serverInfo = &info
		return c.serverInfo, nil
	}
	for _, info := range repositories {
		c.serverInfo = &info
		return c.serverInfo, nil
	}
	return nil, fmt.Errorf("server info contains no repository descriptor")
}

// ServerVersion returns the server's product version.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	info, err := c.FetchServerInfo(ctx, false)
	if err != nil {
		return "", err
	}
	return info.ProductVersion, nil
}

// TokenOptions names the requesting application when asking the server for
// an authentication token.
type TokenOptions struct {
	// DeviceID identifies the requesting device; defaults to a fresh UUID.
	DeviceID string

	// Device is a human-readable device description.
	Device string

	// ApplicationName defaults to "nuxeo-go-client".
	ApplicationName string
}

// RequestAuthToken asks the server for an authentication token scoped to
// the given permission and installs it as the client's TokenAuth. The
// currently configured authenticator signs the token request itself.
// Requesting a token twice for the same device returns the same token.
func (c *Client) RequestAuthToken(ctx context.Context, permission string, opts TokenOptions) (string, error) {
	if opts.DeviceID == "" {
		opts.DeviceID = uuid.NewString()
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = "nuxeo-go-client"
	}

	query := url.Values{}
	query.Set("applicationName", opts.ApplicationName)
	query.Set("deviceId", opts.DeviceID)
	query.Set("permission", permission)
	if opts.Device != "" {
		query.Set("deviceDescription", opts.Device)
	}

	resp, err := c.Request(ctx, http.MethodGet, "authentication/token", WithQuery(query))
	if err != nil {
		return "", fmt.Errorf("failed to request auth token: %w", err)
	}

	token := strings.TrimSpace(string(resp.Body))
	if token == "" {
		return "", fmt.Errorf("server returned an empty token")
	}

	c.auth = TokenAuth{Token: token}
	c.logger.Info("installed server-issued auth token", "device_id", opts.DeviceID)
	return token, nil
}

// IsReachable probes the server's running status. Any failure, transport
// or HTTP, reads as unreachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	_, err := c.Request(ctx, http.MethodGet, "runningstatus")
	return err == nil
}
