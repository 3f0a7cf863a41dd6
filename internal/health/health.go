// Package health checks that the model provider is reachable.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeanpaul/foundernote/internal/provider"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 10 * time.Second

// Lister is the part of a provider a check needs.
type Lister interface {
	Name() string
	Models(ctx context.Context) ([]string, error)
}

type Status struct {
	Provider  string
	Reachable bool
	Models    []string
	Error     string
	Latency   time.Duration
}

// Check asks the provider for its model list.
func Check(ctx context.Context, l Lister, timeout time.Duration) Status {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s := Status{Provider: l.Name()}
	start := time.Now()
	models, err := l.Models(ctx)
	s.Latency = time.Since(start)
	if err != nil {
		s.Error = friendlyError(err)
		return s
	}
	s.Reachable = true
	s.Models = models
	return s
}

// CheckModel reports whether model is among those the provider listed. An
// endpoint that lists nothing is given the benefit of the doubt.
func CheckModel(s Status, model string) error {
	if !s.Reachable {
		return fmt.Errorf("provider not reachable: %s", s.Error)
	}
	if len(s.Models) == 0 || model == "" {
		return nil
	}
	for _, m := range s.Models {
		if m == model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found, available: %s", model, strings.Join(s.Models, ", "))
}

// Checker remembers the last result for ttl so a busy health endpoint does
// not hit the provider on every probe.
type Checker struct {
	lister  Lister
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	last    Status
	checked time.Time
}

func NewChecker(l Lister, ttl time.Duration) *Checker {
	return &Checker{lister: l, ttl: ttl, timeout: DefaultTimeout, now: time.Now}
}

// Healthy returns nil when the provider answered the latest check.
func (c *Checker) Healthy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked.IsZero() || c.now().Sub(c.checked) >= c.ttl {
		c.last = Check(ctx, c.lister, c.timeout)
		c.checked = c.now()
	}
	if !c.last.Reachable {
		return errors.New(c.last.Error)
	}
	return nil
}

func friendlyError(err error) string {
	var se *provider.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "authentication failed, check your API key"
		}
		return fmt.Sprintf("endpoint returned HTTP %d", se.StatusCode)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the service running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check the URL)"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"):
		return "connection timed out (service may be starting up)"
	}
	return msg
}
