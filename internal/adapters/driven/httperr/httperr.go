// Package httperr maps provider HTTP failures onto domain errors.
package httperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// maxBody bounds how much of a response body is quoted in an error.
const maxBody = 300

// Status converts a non-2xx response into an error wrapping the matching
// domain sentinel. unavailable is used for everything not otherwise classified.
func Status(provider string, status int, body string, unavailable error) error {
	var sentinel error
	switch status {
	case http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = domain.ErrConfiguration
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		sentinel = domain.ErrServiceTimeout
	default:
		sentinel = unavailable
	}
	return fmt.Errorf("%w: %s returned status %d: %s", sentinel, provider, status, truncate(body))
}

// Transport wraps a failed round trip. Deadline and network timeouts map to
// ErrServiceTimeout, cancellation is returned as is, and the rest wrap unavailable.
func Transport(provider string, err error, unavailable error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", domain.ErrServiceTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s: %v", unavailable, provider, err)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxBody {
		return s
	}
	return string(r[:maxBody]) + "..."
}
