// Package engine manages remote deployments of the fraud agent on the
// Vertex AI reasoning engine surface: creating an engine instance, listing
// deployed instances, and deleting them by full name or short id.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fraudguard-io/fraudguard/logging"
)

// TokenSource supplies a bearer token per request. In production this wraps
// application default credentials; tests inject a static token.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Engine describes one deployed reasoning engine instance.
type Engine struct {
	Name        string    `json:"name"` // full resource name
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	CreateTime  time.Time `json:"createTime,omitempty"`
	UpdateTime  time.Time `json:"updateTime,omitempty"`
}

// ShortID returns the trailing id segment of the resource name.
func (e Engine) ShortID() string {
	if i := strings.LastIndex(e.Name, "/"); i >= 0 {
		return e.Name[i+1:]
	}
	return e.Name
}

// CreateRequest carries the deployment parameters for a new engine instance.
type CreateRequest struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// Options configure the engine client.
type Options struct {
	// BaseURL overrides the regional API endpoint (used by tests).
	BaseURL string
	// HTTPClient overrides the default http client.
	HTTPClient *http.Client
	// Logger receives request logs.
	Logger logging.Logger
}

// Client is a minimal REST client for the reasoning engine API scoped to one
// project and location.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	location   string
	tokens     TokenSource
	logger     logging.Logger
}

// NewClient constructs a client for the project/location pair.
func NewClient(project, location string, tokens TokenSource, optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:    fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", location),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		project:    project,
		location:   location,
		tokens:     tokens,
		logger:     opts.Logger,
	}
}

// enginesPath returns the collection path for the client's scope.
func (c *Client) enginesPath() string {
	return fmt.Sprintf("projects/%s/locations/%s/reasoningEngines", c.project, c.location)
}

// Create deploys a new engine instance and returns its resource description.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Engine, error) {
	if req.DisplayName == "" {
		return nil, fmt.Errorf("display name must not be empty")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding create request: %w", err)
	}

	c.logger.Info("engine.create", "display_name", req.DisplayName, "project", c.project, "location", c.location)

	var created Engine
	if err := c.do(ctx, http.MethodPost, c.enginesPath(), nil, bytes.NewReader(body), &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// listResponse is the wire shape of the list call.
type listResponse struct {
	ReasoningEngines []Engine `json:"reasoningEngines"`
	NextPageToken    string   `json:"nextPageToken"`
}

// List returns all deployed engine instances in the client's scope,
// following pagination.
func (c *Client) List(ctx context.Context) ([]Engine, error) {
	var engines []Engine
	pageToken := ""

	for {
		query := url.Values{}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.enginesPath(), query, nil, &page); err != nil {
			return nil, err
		}

		engines = append(engines, page.ReasoningEngines...)
		if page.NextPageToken == "" {
			return engines, nil
		}
		pageToken = page.NextPageToken
	}
}

// FindByShortID returns the deployed engine whose resource name ends in the
// given short id, or nil when no instance matches.
func (c *Client) FindByShortID(ctx context.Context, shortID string) (*Engine, error) {
	engines, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range engines {
		if e.Name == shortID || strings.HasSuffix(e.Name, "/"+shortID) {
			return &e, nil
		}
	}

	return nil, nil
}

// Delete removes a deployed engine by full resource name. With force set,
// child resources (sessions included) are deleted too. Deleting an engine
// that is already gone is not an error.
func (c *Client) Delete(ctx context.Context, name string, force bool) error {
	query := url.Values{}
	if force {
		query.Set("force", "true")
	}

	c.logger.Info("engine.delete", "name", name, "force", force)

	err := c.do(ctx, http.MethodDelete, name, query, nil, nil)
	if isNotFound(err) {
		c.logger.Warn("engine.delete.not_found", "name", name)
		return nil
	}
	return err
}

// apiError carries the HTTP status of a failed call.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("engine api error: status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	if apiErr, ok := err.(*apiError); ok {
		return apiErr.status == http.StatusNotFound
	}
	return false
}

// do performs one authenticated request and decodes the JSON response into
// out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out any) error {
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	token, err := c.tokens(ctx)
	if err != nil {
		return fmt.Errorf("fetching token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
