// Package app wires the display pipeline together: status polling, face
// frame fetching and composition onto the panels.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hal/internal/config"
	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/display"
	"github.com/teslashibe/go-hal/pkg/eye"
	"github.com/teslashibe/go-hal/pkg/face"
	"github.com/teslashibe/go-hal/pkg/panel"
	"github.com/teslashibe/go-hal/pkg/scene"
	"github.com/teslashibe/go-hal/pkg/web"
)

// App is the display process.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	epoch  time.Time

	poller   *display.Poller
	selector *display.Selector
	store    *display.Store

	frames  *face.FrameBuffer // nil when the face path is disabled
	fetcher *face.Fetcher

	scene  *scene.Scene
	canvas *image.RGBA
	memory *panel.Memory
	panels *panel.Multi
	extra  []panel.Panel

	dashboard *web.Server
	sched     *Scheduler

	composed atomic.Uint64
	skipped  atomic.Uint64

	// Owned by the compose task.
	shownFace  bool
	shownLabel string
}

// Option configures an App.
type Option func(*App)

// WithPanel adds an output panel besides the in-memory one.
func WithPanel(p panel.Panel) Option {
	return func(a *App) {
		a.extra = append(a.extra, p)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// New validates cfg and creates an App. Call Init before Run.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	a := &App{
		cfg:   cfg,
		epoch: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.Component("app")
	}
	return a, nil
}

// Init builds the components. A frame buffer or panel that cannot be set
// up is logged and left out; the display still runs.
func (a *App) Init() error {
	cfg := a.cfg

	a.poller = display.NewPoller(cfg.StatusURL(),
		display.WithTimeout(cfg.Backend.StatusTimeout.D()),
		display.WithLogger(a.logger.With("component", "poller")),
	)

	classify := display.Classify
	if cfg.States.Strict {
		classify = display.ClassifyStrict
	}
	a.selector = display.NewSelector(classify)
	a.store = display.NewStore()

	if cfg.Face.Enabled {
		fb, err := face.NewFrameBuffer(cfg.Panel.Width, cfg.Panel.Height)
		if err != nil {
			a.logger.Error("face frames disabled", "error", err)
		} else {
			a.frames = fb
			a.fetcher = face.NewFetcher(cfg.FrameURL(),
				face.WithTimeout(cfg.Backend.FrameTimeout.D()),
				face.WithMaxBytes(cfg.Face.MaxFrameBytes),
				face.WithLogger(a.logger.With("component", "face")),
			)
		}
	}

	a.scene = scene.New(eye.NewRenderer(a.epoch), a.frames,
		scene.WithLogger(a.logger.With("component", "scene")))
	a.canvas = image.NewRGBA(image.Rect(0, 0, cfg.Panel.Width, cfg.Panel.Height))

	a.memory = panel.NewMemory(cfg.Panel.Width, cfg.Panel.Height)
	a.panels = panel.NewMulti(a.memory)
	for _, p := range a.extra {
		a.panels.Add(p)
	}
	if d := cfg.Panel.Driver; d == "ssd1306" {
		oled, err := panel.OpenOLED(cfg.Panel.I2CBus)
		if err != nil {
			a.logger.Warn("oled panel unavailable, continuing without it", "error", err)
		} else {
			a.panels.Add(oled)
		}
	}

	if cfg.Dashboard.Enabled {
		a.dashboard = web.NewServer(cfg.Dashboard.Port, a,
			web.WithFrameInterval(cfg.Dashboard.FrameInterval.D()),
			web.WithLogger(a.logger.With("component", "web")),
		)
	}

	a.sched = NewScheduler(a.logger.With("component", "scheduler"))
	a.sched.Add(Task{
		Name:      "poll",
		Interval:  cfg.Intervals.Poll.D(),
		Immediate: true,
		Fn:        a.pollTick,
	})
	if a.frames != nil {
		a.sched.Add(Task{
			Name:     "frame",
			Interval: cfg.Intervals.Frame.D(),
			Guard:    func() bool { return a.store.Mode() == display.ModeFace },
			Fn:       a.frameTick,
		})
	}
	a.sched.Add(Task{
		Name:      "compose",
		Interval:  cfg.Intervals.Eye.D(),
		Immediate: true,
		Fn:        a.composeTick,
	})

	a.logger.Info("display initialised",
		"backend", cfg.BaseURL(),
		"panel", fmt.Sprintf("%dx%d", cfg.Panel.Width, cfg.Panel.Height),
		"face", a.frames != nil,
		"panels", a.panels.Len(),
		"dashboard", a.dashboard != nil,
	)
	return nil
}

// Run drives the display until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.sched == nil {
		return errors.New("app: Run called before Init")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var dashErr error
	if a.dashboard != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.dashboard.Run(ctx); err != nil {
				dashErr = err
				a.logger.Error("dashboard stopped", "error", err)
			}
		}()
	}

	a.sched.Run(ctx)
	wg.Wait()
	return dashErr
}

// Shutdown closes the panels.
func (a *App) Shutdown() error {
	if a.panels == nil {
		return nil
	}
	return a.panels.Close()
}

// pollTick fetches the status and publishes the new render state.
func (a *App) pollTick(ctx context.Context) {
	a.poller.Tick(ctx, a.apply)
}

func (a *App) apply(st display.Status) {
	prev := a.selector.Current()
	rs, changed := a.selector.Apply(st)
	a.store.Set(rs)

	// The scene follows rs.Mode on its next compose.
	if changed {
		if a.dashboard != nil {
			a.dashboard.AddEvent("mode", prev.Mode.String()+" -> "+rs.Mode.String())
		}
	}
	if prev.State != rs.State {
		a.logger.Debug("state changed", "from", prev.State, "to", rs.State, "flags", rs.Flags)
		if a.dashboard != nil {
			a.dashboard.AddEvent("state", rs.State)
		}
	}
	if a.dashboard != nil {
		a.dashboard.PublishState(rs)
	}
}

func (a *App) frameTick(ctx context.Context) {
	a.fetcher.Tick(ctx, a.frames)
}

// composeTick draws the current scene and pushes it to every panel.
// A face frame already on the panels is not pushed again.
func (a *App) composeTick(ctx context.Context) {
	now := time.Now()
	rs := a.store.Load()
	label := rs.Label()
	if a.faceUnchanged(rs.Mode, label) {
		a.skipped.Add(1)
		return
	}

	a.scene.Compose(a.canvas, now, rs)
	a.composed.Add(1)
	a.shownFace = rs.Mode == display.ModeFace
	a.shownLabel = label

	if err := a.panels.Draw(a.canvas); err != nil {
		var drawErr *panel.DrawError
		if errors.As(err, &drawErr) {
			for i, p := range drawErr.Panels {
				if p == panel.Panel(a.memory) {
					continue
				}
				a.logger.Warn("dropping panel", "error", drawErr.Errs[i])
				a.panels.Remove(p)
				p.Close()
			}
		}
	}

	if a.dashboard != nil && a.dashboard.WantsFrame(now) {
		data, err := a.memory.JPEG(panel.DefaultJPEGQuality)
		if err != nil {
			a.logger.Debug("encode preview", "error", err)
			return
		}
		a.dashboard.PublishFrame(now, data)
	}
}

func (a *App) faceUnchanged(mode display.Mode, label string) bool {
	return mode == display.ModeFace && a.shownFace &&
		a.frames != nil && !a.frames.Dirty() &&
		label == a.shownLabel
}

// Stats is the dashboard's view of the pipeline counters.
type Stats struct {
	Poller   display.PollerStats  `json:"poller"`
	Face     *face.Stats          `json:"face,omitempty"`
	Swaps    uint64               `json:"swaps"`
	Composed uint64               `json:"composed"`
	Skipped  uint64               `json:"skipped"`
	Panels   int                  `json:"panels"`
	Tasks    map[string]TaskStats `json:"tasks"`
}

// RenderState implements web.Provider.
func (a *App) RenderState() display.RenderState {
	return a.store.Load()
}

// Stats implements web.Provider.
func (a *App) Stats() any {
	return a.Snapshot()
}

// Snapshot returns the current counters.
func (a *App) Snapshot() Stats {
	s := Stats{
		Poller:   a.poller.Stats(),
		Swaps:    a.scene.Swaps(),
		Composed: a.composed.Load(),
		Skipped:  a.skipped.Load(),
		Panels:   a.panels.Len(),
		Tasks:    a.sched.Stats(),
	}
	if a.fetcher != nil {
		fs := a.fetcher.Stats()
		s.Face = &fs
	}
	return s
}

// FrameJPEG implements web.Provider.
func (a *App) FrameJPEG() ([]byte, error) {
	if a.memory.Frames() == 0 {
		return nil, errors.New("no frame composed yet")
	}
	return a.memory.JPEG(panel.DefaultJPEGQuality)
}

// Memory returns the in-memory panel.
func (a *App) Memory() *panel.Memory {
	return a.memory
}

// Store returns the render state hand-off.
func (a *App) Store() *display.Store {
	return a.store
}

// FaceEnabled reports whether face frames are fetched.
func (a *App) FaceEnabled() bool {
	return a.frames != nil
}

// Dashboard returns the dashboard server, or nil when disabled.
func (a *App) Dashboard() *web.Server {
	return a.dashboard
}
