package face

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hal/internal/httpc"
	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/display"
)

// Defaults for face frame requests.
const (
	DefaultFrameTimeout  = 3 * time.Second
	DefaultMaxFrameBytes = 200000
)

// Fetcher downloads face frames and blits them into a FrameBuffer.
type Fetcher struct {
	url      string
	client   *http.Client
	maxBytes int
	logger   *slog.Logger

	fetches     atomic.Uint64
	failures    atomic.Uint64
	consecutive atomic.Uint64
	lastBytes   atomic.Int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for frame requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client = httpc.NewClient(d)
	}
}

// WithMaxBytes sets the frame size ceiling.
func WithMaxBytes(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a fetcher for the full frame URL, query included.
func NewFetcher(url string, opts ...Option) *Fetcher {
	f := &Fetcher{
		url:      url,
		client:   httpc.NewClient(DefaultFrameTimeout),
		maxBytes: DefaultMaxFrameBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.Component("face")
	}
	return f
}

// URL returns the frame endpoint.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads one encoded frame.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := httpc.Get(ctx, f.client, f.url)
	if err != nil {
		return nil, fmt.Errorf("face: frame request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &display.HTTPError{StatusCode: resp.StatusCode, URL: f.url}
	}
	if resp.ContentLength > int64(f.maxBytes) {
		return nil, fmt.Errorf("%w: content length %d > %d", ErrFrameTooLarge, resp.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("face: read frame: %w", err)
	}
	if len(data) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFrameTooLarge, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	return data, nil
}

// Decode decodes a JPEG or PNG frame.
func Decode(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	return img, nil
}

// Update fetches, decodes and blits one frame. On any error the buffer is
// left untouched.
func (f *Fetcher) Update(ctx context.Context, fb *FrameBuffer) error {
	data, err := f.Fetch(ctx)
	if err != nil {
		return err
	}
	img, err := Decode(data)
	if err != nil {
		return err
	}
	f.lastBytes.Store(int64(len(data)))
	fb.Blit(img)
	return nil
}

// Tick runs Update and logs failures the way the status poller does.
func (f *Fetcher) Tick(ctx context.Context, fb *FrameBuffer) bool {
	f.fetches.Add(1)

	if err := f.Update(ctx, fb); err != nil {
		f.failures.Add(1)
		n := f.consecutive.Add(1)
		if ctx.Err() != nil {
			return false
		}
		if n == 1 {
			f.logger.Warn("face frame failed", "url", f.url, "error", err)
		} else {
			f.logger.Debug("face frame failed", "url", f.url, "error", err, "consecutive", n)
		}
		return false
	}

	if n := f.consecutive.Swap(0); n > 0 {
		f.logger.Info("face frames recovered", "failed_fetches", n)
	}
	return true
}

// Stats are counters for the dashboard.
type Stats struct {
	Fetches             uint64 `json:"fetches"`
	Failures            uint64 `json:"failures"`
	ConsecutiveFailures uint64 `json:"consecutive_failures"`
	LastFrameBytes      int64  `json:"last_frame_bytes"`
}

// Stats returns the fetch counters.
func (f *Fetcher) Stats() Stats {
	return Stats{
		Fetches:             f.fetches.Load(),
		Failures:            f.failures.Load(),
		ConsecutiveFailures: f.consecutive.Load(),
		LastFrameBytes:      f.lastBytes.Load(),
	}
}
