// Package instagram provides a narrow HTTP client for the subset of the
// Instagram Graph API used to publish reels: container creation, container
// status polling, and media publishing. The wire shapes belong to the
// remote platform and are isolated here.
package instagram

import "fmt"

// StatusCode is the remote container processing status.
type StatusCode string

// Container status codes reported by the Graph API.
const (
	StatusFinished   StatusCode = "FINISHED"
	StatusError      StatusCode = "ERROR"
	StatusInProgress StatusCode = "IN_PROGRESS"
	StatusPublished  StatusCode = "PUBLISHED"
	StatusExpired    StatusCode = "EXPIRED"
)

// ContainerStatus is the result of polling a container.
type ContainerStatus struct {
	// Code is the processing status code.
	Code StatusCode
	// Detail is the free-text status field, carrying the remote error
	// description when Code is ERROR.
	Detail string
}

// APIError is a non-success response from the Graph API. The message is
// preserved verbatim so callers can surface exactly what the platform said.
type APIError struct {
	Code    int
	Subcode int
	Message string
}

func (e *APIError) Error() string {
	if e.Subcode != 0 {
		return fmt.Sprintf("instagram: API error %d (subcode %d): %s", e.Code, e.Subcode, e.Message)
	}
	return fmt.Sprintf("instagram: API error %d: %s", e.Code, e.Message)
}

// TransportError is a network-level failure (timeout, refused connection,
// unreadable response). Distinct from APIError so callers can tell "the
// API rejected us" from "we couldn't reach them".
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("instagram: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorEnvelope is the Graph API error response shape.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode"`
	} `json:"error"`
}

// idResponse is the response shape for container creation and publishing.
type idResponse struct {
	ID string `json:"id"`
}

// statusResponse is the response shape for container status queries.
type statusResponse struct {
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

// ReelURL constructs the public reel URL for a published media ID.
func ReelURL(mediaID string) string {
	return fmt.Sprintf("https://www.instagram.com/reel/%s/", mediaID)
}
