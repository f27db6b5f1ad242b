// Package web serves the live preview dashboard for the display.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/display"
	"github.com/teslashibe/go-hal/pkg/hub"
)

// DefaultFrameInterval throttles the panel preview stream.
const DefaultFrameInterval = 200 * time.Millisecond

// maxEvents is the size of the event ring.
const maxEvents = 200

// Provider supplies what the dashboard shows.
type Provider interface {
	RenderState() display.RenderState
	Stats() any
	FrameJPEG() ([]byte, error)
}

// Event is one dashboard log line, such as a mode change.
type Event struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"` // mode, state, error
	Message string    `json:"message"`
}

// Server is the dashboard HTTP and websocket server.
type Server struct {
	app      *fiber.App
	port     int
	provider Provider
	instance string
	started  time.Time
	logger   *slog.Logger

	statusHub *hub.Hub
	panelHub  *hub.Hub

	frameInterval time.Duration
	lastFrame     atomic.Int64 // unix nanos of the last preview frame

	events   []Event
	eventsMu sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithFrameInterval sets the minimum gap between preview frames.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a dashboard on port for p.
func NewServer(port int, p Provider, opts ...Option) *Server {
	s := &Server{
		port:          port,
		provider:      p,
		instance:      uuid.NewString(),
		started:       time.Now(),
		frameInterval: DefaultFrameInterval,
		events:        make([]Event, 0, maxEvents),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("web")
	}
	s.statusHub = hub.New("status", hub.WithRetain(), hub.WithLogger(s.logger))
	s.panelHub = hub.New("panel", hub.WithRetain(), hub.WithLogger(s.logger))

	app := fiber.New(fiber.Config{
		AppName:               "HAL Display",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/display", s.handleDisplay)
	api.Get("/display/frame.jpg", s.handleFrame)
	api.Get("/events", s.handleEvents)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/panel", websocket.New(s.handlePanelWS))

	s.app = app
	return s
}

// App exposes the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Instance returns the id reported by /api/display.
func (s *Server) Instance() string {
	return s.instance
}

// Run starts the hubs and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go s.panelHub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listener(ln)
	}()
	s.logger.Info("dashboard listening", "addr", "http://"+ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// PublishState pushes a render state to status subscribers.
func (s *Server) PublishState(rs display.RenderState) {
	if err := s.statusHub.BroadcastEvent("status", statusView(rs)); err != nil {
		s.logger.Debug("encode status", "error", err)
	}
}

// AddEvent records an event and pushes it to status subscribers.
func (s *Server) AddEvent(typ, message string) {
	e := Event{Time: time.Now(), Type: typ, Message: message}

	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if err := s.statusHub.BroadcastEvent("event", e); err != nil {
		s.logger.Debug("encode event", "error", err)
	}
}

// Events returns a copy of the event ring.
func (s *Server) Events() []Event {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return append([]Event(nil), s.events...)
}

// WantsFrame reports whether a preview frame should be published at now:
// someone is watching and the throttle interval has passed.
func (s *Server) WantsFrame(now time.Time) bool {
	if s.panelHub.ClientCount() == 0 {
		return false
	}
	return now.UnixNano()-s.lastFrame.Load() >= int64(s.frameInterval)
}

// PublishFrame pushes an encoded preview frame to panel subscribers.
func (s *Server) PublishFrame(now time.Time, jpeg []byte) {
	s.lastFrame.Store(now.UnixNano())
	s.panelHub.BroadcastBinary(jpeg)
}

// Clients returns the number of status and panel subscribers.
func (s *Server) Clients() (status, panel int) {
	return s.statusHub.ClientCount(), s.panelHub.ClientCount()
}
