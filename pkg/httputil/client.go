package httputil

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewRestyClient creates a Resty client with the panel's common settings.
// The backend transport owns timeout semantics; no retries are layered on
// top so a failed fetch surfaces immediately and the next poll cycle (or the
// admin re-clicking) is the retry.
func NewRestyClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "travel-admin-panel")
}
