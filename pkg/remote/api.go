// Package remote delivers queued actions to the AgriOne API.
package remote

import (
	"context"
	"fmt"
	"net/http"
)

// Request is one delivery attempt of a queued action
type Request struct {
	ActionID   string
	ActionType string
	Method     string
	Path       string
	Body       []byte
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s (%s %s)", r.Method, r.Path, r.ActionType, r.ActionID)
}

// Response is the remote outcome
type Response struct {
	Status int
	Body   []byte
}

func (r Response) String() string {
	return fmt.Sprintf("HTTP response %d", r.Status)
}

// IsSuccess reports a 2xx status
func (r Response) IsSuccess() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// IsPermanentError reports a client error that a retry will not fix.
// Timeouts and rate limiting are treated as temporary.
func (r Response) IsPermanentError() bool {
	if r.Status == http.StatusRequestTimeout || r.Status == http.StatusTooManyRequests {
		return false
	}
	return r.Status >= http.StatusBadRequest && r.Status < http.StatusInternalServerError
}

// Sender performs a delivery
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}
