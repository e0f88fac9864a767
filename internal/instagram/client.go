package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Static errors for client construction and calls.
var (
	// ErrAccountIDRequired is returned when the business account ID is not provided.
	ErrAccountIDRequired = errors.New("instagram: business account ID is required")
	// ErrAccessTokenRequired is returned when the access token is not provided.
	ErrAccessTokenRequired = errors.New("instagram: access token is required")
	// ErrContainerIDRequired is returned when a container ID is not provided.
	ErrContainerIDRequired = errors.New("instagram: container ID is required")
	// ErrNoContainerID is returned when container creation succeeds without an ID.
	ErrNoContainerID = errors.New("instagram: create container: no container ID returned")
	// ErrNoMediaID is returned when publishing succeeds without a media ID.
	ErrNoMediaID = errors.New("instagram: publish: no media ID returned")
)

// Client defines the interface for the three publish operations.
type Client interface {
	// CreateContainer registers a hosted video for ingestion and returns
	// the container ID.
	CreateContainer(ctx context.Context, videoURL, caption string) (containerID string, err error)

	// ContainerStatus queries the processing status of a container.
	ContainerStatus(ctx context.Context, containerID string) (ContainerStatus, error)

	// Publish publishes a finished container and returns the media ID.
	Publish(ctx context.Context, containerID string) (mediaID string, err error)
}

// HTTPClient is the HTTP implementation of Client against the Graph API.
type HTTPClient struct {
	accountID   string
	accessToken string
	baseURL     string
	apiVersion  string
	httpClient  *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Graph API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithAPIVersion sets the Graph API version segment (e.g. "v21.0").
func WithAPIVersion(version string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiVersion = version
	}
}

// NewClient creates a new Graph API client for the given business account.
func NewClient(accountID, accessToken string, opts ...ClientOption) (*HTTPClient, error) {
	if accountID == "" {
		return nil, ErrAccountIDRequired
	}
	if accessToken == "" {
		return nil, ErrAccessTokenRequired
	}

	c := &HTTPClient{
		accountID:   accountID,
		accessToken: accessToken,
		baseURL:     "https://graph.facebook.com",
		apiVersion:  "v21.0",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// endpoint joins the base URL, API version and path segments.
func (c *HTTPClient) endpoint(segments ...string) string {
	parts := append([]string{c.baseURL, c.apiVersion}, segments...)
	return strings.Join(parts, "/")
}

// CreateContainer registers the video for ingestion as a reel.
func (c *HTTPClient) CreateContainer(ctx context.Context, videoURL, caption string) (string, error) {
	form := url.Values{
		"video_url":     {videoURL},
		"media_type":    {"REELS"},
		"caption":       {caption},
		"share_to_feed": {"true"},
		"access_token":  {c.accessToken},
	}

	var resp idResponse
	if err := c.postForm(ctx, c.endpoint(c.accountID, "media"), form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoContainerID
	}
	return resp.ID, nil
}

// ContainerStatus queries the processing status of a container.
func (c *HTTPClient) ContainerStatus(ctx context.Context, containerID string) (ContainerStatus, error) {
	if containerID == "" {
		return ContainerStatus{}, ErrContainerIDRequired
	}

	query := url.Values{
		"fields":       {"status_code,status"},
		"access_token": {c.accessToken},
	}
	endpoint := c.endpoint(containerID) + "?" + query.Encode()

	var resp statusResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return ContainerStatus{}, err
	}
	return ContainerStatus{
		Code:   StatusCode(resp.StatusCode),
		Detail: resp.Status,
	}, nil
}

// Publish publishes a finished container.
func (c *HTTPClient) Publish(ctx context.Context, containerID string) (string, error) {
	if containerID == "" {
		return "", ErrContainerIDRequired
	}

	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {c.accessToken},
	}

	var resp idResponse
	if err := c.postForm(ctx, c.endpoint(c.accountID, "media_publish"), form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoMediaID
	}
	return resp.ID, nil
}

// postForm performs a form-encoded POST and decodes the JSON response.
func (c *HTTPClient) postForm(ctx context.Context, endpoint string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("instagram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, result)
}

// get performs a GET and decodes the JSON response.
func (c *HTTPClient) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("instagram: create request: %w", err)
	}
	return c.do(req, result)
}

// do executes a request. Non-2xx responses carrying a Graph error envelope
// become *APIError with the remote message preserved verbatim; transport
// faults become *TransportError.
func (c *HTTPClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error.Message != "" {
			return &APIError{
				Code:    envelope.Error.Code,
				Subcode: envelope.Error.Subcode,
				Message: envelope.Error.Message,
			}
		}
		return &APIError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return &TransportError{Err: fmt.Errorf("unmarshal response: %w", err)}
		}
	}
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
