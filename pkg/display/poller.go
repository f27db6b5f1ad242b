package display

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hal/internal/httpc"
	"github.com/teslashibe/go-hal/internal/log"
)

// DefaultStatusTimeout bounds a single status request.
const DefaultStatusTimeout = 2 * time.Second

// maxStatusBytes caps the status body; real documents are under 200 bytes.
const maxStatusBytes = 64 * 1024

// Poller fetches the display status document.
type Poller struct {
	url    string
	client *http.Client
	logger *slog.Logger

	polls       atomic.Uint64
	failures    atomic.Uint64
	consecutive atomic.Uint64
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithHTTPClient sets the HTTP client used for status requests.
func WithHTTPClient(c *http.Client) PollerOption {
	return func(p *Poller) {
		p.client = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.client = httpc.NewClient(d)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}

// NewPoller creates a poller for the given status URL.
func NewPoller(url string, opts ...PollerOption) *Poller {
	p := &Poller{
		url:    url,
		client: httpc.NewClient(DefaultStatusTimeout),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Component("poller")
	}
	return p
}

// URL returns the polled endpoint.
func (p *Poller) URL() string {
	return p.url
}

// Poll performs one GET and decodes the status.
func (p *Poller) Poll(ctx context.Context) (Status, error) {
	resp, err := httpc.Get(ctx, p.client, p.url)
	if err != nil {
		return Status{}, fmt.Errorf("display: status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBytes))
		return Status{}, &HTTPError{StatusCode: resp.StatusCode, URL: p.url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBytes+1))
	if err != nil {
		return Status{}, fmt.Errorf("display: read status: %w", err)
	}
	if len(body) > maxStatusBytes {
		return Status{}, fmt.Errorf("%w: body larger than %d bytes", ErrMalformedStatus, maxStatusBytes)
	}

	return ParseStatus(body)
}

// Tick polls once and hands a good status to apply. Failures are logged and
// swallowed: the previous state stays in place and the next tick retries.
func (p *Poller) Tick(ctx context.Context, apply func(Status)) bool {
	p.polls.Add(1)

	st, err := p.Poll(ctx)
	if err != nil {
		p.failures.Add(1)
		n := p.consecutive.Add(1)
		if ctx.Err() != nil {
			return false
		}
		// Warn once per outage, then stay quiet until it recovers.
		if n == 1 {
			p.logger.Warn("display check failed", "url", p.url, "error", err)
		} else {
			p.logger.Debug("display check failed", "url", p.url, "error", err, "consecutive", n)
		}
		return false
	}

	if n := p.consecutive.Swap(0); n > 0 {
		p.logger.Info("display check recovered", "failed_polls", n)
	}
	apply(st)
	return true
}

// PollerStats are counters for the dashboard.
type PollerStats struct {
	Polls               uint64 `json:"polls"`
	Failures            uint64 `json:"failures"`
	ConsecutiveFailures uint64 `json:"consecutive_failures"`
}

// Stats returns the poll counters.
func (p *Poller) Stats() PollerStats {
	return PollerStats{
		Polls:               p.polls.Load(),
		Failures:            p.failures.Load(),
		ConsecutiveFailures: p.consecutive.Load(),
	}
}
