package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	URL string
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout fetching %s: %w", e.URL, e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates a response outside the 2xx range.
type ErrHTTPStatus struct {
	URL  string
	Code int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http status %d (%s) fetching %s", e.Code, http.StatusText(e.Code), e.URL)
}

// ErrConnection indicates a network connectivity failure, or any transport
// error that is neither a timeout nor a status.
type ErrConnection struct {
	URL string
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection error fetching %s: %w", e.URL, e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrCanceled indicates the run was interrupted while the request was pending.
type ErrCanceled struct {
	URL string
	Err error
}

func (e ErrCanceled) Error() string {
	return fmt.Errorf("canceled fetching %s: %w", e.URL, e.Err).Error()
}

func (e ErrCanceled) Unwrap() error {
	return e.Err
}

// classifyError maps a transport error and status code onto the fetch error
// classes. Any error that came with a response status is a status error;
// colly rejects 203 and above even though they are 2xx.
func classifyError(url string, err error, statusCode int) error {
	if err == nil && (statusCode == 0 || isSuccess(statusCode)) {
		return nil
	}

	if statusCode != 0 {
		return ErrHTTPStatus{URL: url, Code: statusCode}
	}

	if errors.Is(err, context.Canceled) {
		return ErrCanceled{URL: url, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{URL: url, Err: err}
	}
	return ErrConnection{URL: url, Err: err}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "none"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var canceled ErrCanceled
	if errors.As(err, &canceled) {
		return "canceled"
	}
	return "other"
}

// StatusCode returns the HTTP status carried by err, 0 when there is none.
func StatusCode(err error) int {
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return status.Code
	}
	return 0
}
