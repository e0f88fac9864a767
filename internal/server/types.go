// Package server provides the HTTP server for the reelstack API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// SubmitResponse is the HTTP response after submitting a composition job.
type SubmitResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// PublishRequest is the HTTP request body for publishing a completed job.
type PublishRequest struct {
	// Caption is the publish caption. Required.
	Caption string `json:"caption" validate:"required"`
	// Hashtags are appended to the caption (e.g. "#gaming #memes").
	Hashtags string `json:"hashtags"`
}

// PublishResponse is the HTTP response after starting a publish attempt.
type PublishResponse struct {
	// ID is the job identifier.
	ID string `json:"id"`
	// PublishStatus is the initial publish state.
	PublishStatus string `json:"publish_status"`
}

// PublishView is the publish block of a job status response.
type PublishView struct {
	// Status is the publish state (uploading, success, failed).
	Status string `json:"status"`
	// URL is the public reel URL, present on success.
	URL string `json:"url,omitempty"`
	// Error is the failure message, present on failure.
	Error string `json:"error,omitempty"`
	// ErrorCategory classifies the failure, present on failure.
	ErrorCategory string `json:"error_category,omitempty"`
}

// JobResponse is the HTTP response for polling job status.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// Message is the latest progress message.
	Message string `json:"message,omitempty"`
	// Error contains the failure cause if the job failed.
	Error string `json:"error,omitempty"`
	// PreviewURL streams the composed reel (done jobs only).
	PreviewURL string `json:"preview_url,omitempty"`
	// DownloadURL downloads the composed reel (done jobs only).
	DownloadURL string `json:"download_url,omitempty"`
	// Publish reflects the active publish attempt, if any.
	Publish *PublishView `json:"publish,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
