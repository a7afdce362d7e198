// Package remote holds the pieces shared by every component that talks to
// the vault server: the error type carrying the HTTP status and raw body,
// and the response check that maps any status >= 400 into it.
package remote

import (
	"fmt"
	"io"
	"log"
	"net/http"
)

// Error is a failed request to the vault server. It carries the status code
// and the raw response body; callers decide what to do with them.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// CheckResponse reads the response body and returns it when the status is a
// success, or an *Error otherwise. A 403 is logged as an access-denied
// condition before the error is returned; it changes observability only,
// not control flow.
func CheckResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusForbidden {
			log.Printf("remote: 403 forbidden on %s %s: acting account has no access to this data",
				resp.Request.Method, resp.Request.URL.Path)
		}
		return nil, &Error{
			Method:     resp.Request.Method,
			Path:       resp.Request.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}
