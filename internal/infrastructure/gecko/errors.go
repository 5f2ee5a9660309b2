package gecko

import (
	"fmt"
	"net/http"
)

const maxErrBody = 512

// HTTPError is a non-2xx provider response.
type HTTPError struct {
	Status      int
	URL         string
	Body        string
	RateLimited bool
}

func (e *HTTPError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("gecko http %d (rate limited): %s", e.Status, e.URL)
	}
	return fmt.Sprintf("gecko http %d: %s: %s", e.Status, e.URL, e.Body)
}

func newHTTPError(status int, url string, body []byte) *HTTPError {
	if len(body) > maxErrBody {
		body = body[:maxErrBody]
	}
	return &HTTPError{
		Status:      status,
		URL:         url,
		Body:        string(body),
		RateLimited: status == http.StatusTooManyRequests,
	}
}
