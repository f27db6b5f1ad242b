package sim

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/display"
)

// Simulator serves the backend display contract.
type Simulator struct {
	mu       sync.RWMutex
	script   []Step
	pos      int
	override *Step

	snapshot image.Image
	instance string
	logger   *slog.Logger
	app      *fiber.App

	statusRequests atomic.Uint64
	frameRequests  atomic.Uint64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithScript replaces the conversation script.
func WithScript(steps []Step) Option {
	return func(s *Simulator) {
		if len(steps) > 0 {
			s.script = steps
		}
	}
}

// WithSnapshot serves img as the face frame instead of the test pattern.
func WithSnapshot(img image.Image) Option {
	return func(s *Simulator) {
		s.snapshot = img
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// New creates a simulator positioned at the first script step.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		script:   Conversation(DefaultPerson),
		instance: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("sim")
	}
	if s.snapshot == nil {
		s.snapshot = TestPattern(256)
	}

	app := fiber.New(fiber.Config{
		AppName:               "HAL Backend Simulator",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/health", s.handleHealth)
	hal := app.Group("/api/hal")
	hal.Get("/display", s.handleDisplay)
	hal.Post("/display", s.handleOverride)
	hal.Delete("/display", s.handleClearOverride)
	hal.Post("/advance", s.handleAdvance)
	hal.Get("/face_frame", s.handleFaceFrame)

	s.app = app
	return s
}

// App exposes the Fiber app, mainly for tests.
func (s *Simulator) App() *fiber.App {
	return s.app
}

// Serve handles requests on ln until ctx is done.
func (s *Simulator) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listener(ln)
	}()
	s.logger.Info("simulator listening", "addr", "http://"+ln.Addr().String(), "instance", s.instance)

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

// ListenAndServe listens on port and calls Serve.
func (s *Simulator) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("sim: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Requests returns how many status and frame requests were served.
func (s *Simulator) Requests() (status, frames uint64) {
	return s.statusRequests.Load(), s.frameRequests.Load()
}

// statusDoc is the wire shape of GET /api/hal/display.
type statusDoc struct {
	Mode   string `json:"mode"`
	State  string `json:"state"`
	Person string `json:"person,omitempty"`
}

func (s *Simulator) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"instance": s.instance,
	})
}

func (s *Simulator) handleDisplay(c *fiber.Ctx) error {
	s.statusRequests.Add(1)
	st := s.Current()
	return c.JSON(statusDoc{Mode: st.Mode.String(), State: st.State, Person: st.Person})
}

func (s *Simulator) handleOverride(c *fiber.Ctx) error {
	st, err := display.ParseStatus(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.Override(Step{Mode: st.Mode, State: st.State, Person: st.Person})
	return s.handleDisplay(c)
}

func (s *Simulator) handleClearOverride(c *fiber.Ctx) error {
	s.ClearOverride()
	return s.handleDisplay(c)
}

func (s *Simulator) handleAdvance(c *fiber.Ctx) error {
	if s.Overridden() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "status is overridden",
		})
	}
	s.Advance()
	return s.handleDisplay(c)
}

func (s *Simulator) handleFaceFrame(c *fiber.Ctx) error {
	s.frameRequests.Add(1)

	red := c.QueryBool("red", false)
	size := c.QueryInt("size", DefaultFrameSize)
	if size < MinFrameSize || size > MaxFrameSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("size must be between %d and %d", MinFrameSize, MaxFrameSize),
		})
	}

	data, err := EncodeFrame(s.snapshot, size, red)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}
