package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-hal/internal/config"
	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/display"
)

// fakeBackend serves a status document chosen by the test and a solid blue
// face frame.
type fakeBackend struct {
	status atomic.Value // string
	frames atomic.Int32
	*httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	b.status.Store(`{"mode":"eye","state":"idle"}`)

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+2], img.Pix[i+3] = 220, 255
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, nil)
	frame := buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc(config.StatusPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(b.status.Load().(string)))
	})
	mux.HandleFunc(config.FramePath, func(w http.ResponseWriter, r *http.Request) {
		b.frames.Add(1)
		w.Write(frame)
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func testConfig(t *testing.T, backendURL string) config.Config {
	t.Helper()
	u, err := url.Parse(backendURL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	cfg := config.Default()
	cfg.Backend.Host = host
	cfg.Backend.Port = port
	cfg.Intervals.Poll = config.Duration(10 * time.Millisecond)
	cfg.Intervals.Frame = config.Duration(10 * time.Millisecond)
	cfg.Intervals.Eye = config.Duration(5 * time.Millisecond)
	cfg.Panel.Width, cfg.Panel.Height = 120, 120
	cfg.Face.Size = 120
	return cfg
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(cfg, WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		a.Shutdown()
	})
	return a
}

func centre(a *App) color.RGBA {
	return a.Memory().Image().RGBAAt(60, 60)
}

func TestApp_EyeThenFaceThenEye(t *testing.T) {
	backend := newFakeBackend(t)
	a := startApp(t, testConfig(t, backend.URL))

	eventually(t, "first poll", func() bool { return a.Store().Load().Online })
	eventually(t, "eye on panel", func() bool { return centre(a).R == 255 })
	if backend.frames.Load() != 0 {
		t.Error("frames must not be fetched in eye mode")
	}

	backend.status.Store(`{"mode":"face","state":"confirming","person":"Dave"}`)
	eventually(t, "face mode", func() bool { return a.Store().Mode() == display.ModeFace })
	eventually(t, "face frame on panel", func() bool {
		c := centre(a)
		return c.B > 180 && c.R < 40
	})
	if got := a.Store().Load().Label(); got != "Dave" {
		t.Errorf("label %q", got)
	}

	backend.status.Store(`{"mode":"eye","state":"idle"}`)
	eventually(t, "eye mode", func() bool { return a.Store().Mode() == display.ModeEye })
	eventually(t, "eye on panel again", func() bool { return centre(a).R == 255 })

	fetched := backend.frames.Load()
	time.Sleep(50 * time.Millisecond)
	if backend.frames.Load() > fetched+1 {
		t.Error("frame fetching should stop in eye mode")
	}
	if swaps := a.Snapshot().Swaps; swaps != 2 {
		t.Errorf("swaps: %d, want 2", swaps)
	}
}

func TestApp_BackendDownKeepsEye(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := testConfig(t, backend.URL)
	backend.Close()

	a := startApp(t, cfg)
	eventually(t, "some polls", func() bool { return a.Snapshot().Poller.Failures >= 3 })

	rs := a.Store().Load()
	if rs.Online || rs.Mode != display.ModeEye || rs.Label() != display.LabelInitializing {
		t.Errorf("state should stay initial: %+v", rs)
	}
	eventually(t, "eye still animating", func() bool { return centre(a).R == 255 })
}

func TestApp_FaceDisabledOnBadBuffer(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := testConfig(t, backend.URL)
	cfg.Panel.Width, cfg.Panel.Height = 2100, 16

	a := startApp(t, cfg)
	if a.FaceEnabled() {
		t.Fatal("face path should be disabled for an oversized buffer")
	}

	backend.status.Store(`{"mode":"face","state":"speaking"}`)
	eventually(t, "face mode", func() bool { return a.Store().Mode() == display.ModeFace })
	time.Sleep(30 * time.Millisecond)
	if backend.frames.Load() != 0 {
		t.Error("no frames should be fetched with the face path disabled")
	}
}

// initApp builds an App without running its scheduler.
func initApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	cfg.Dashboard.Enabled = false
	a, err := New(cfg, WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

// A compose racing a mode change must draw the layer of the state it read.
func TestApp_ApplyAndComposeAgree(t *testing.T) {
	a := initApp(t, testConfig(t, "http://127.0.0.1:1"))
	if !a.FaceEnabled() {
		t.Fatal("face path should be enabled")
	}

	faceStatus := display.Status{Mode: display.ModeFace, State: "confirming", HasState: true, Person: "Dave"}
	eyeStatus := display.Status{Mode: display.ModeEye, State: "idle", HasState: true}

	const rounds = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if i%2 == 0 {
				a.apply(faceStatus)
			} else {
				a.apply(eyeStatus)
			}
		}
	}()

	var diverged atomic.Int32
	go func() {
		defer wg.Done()
		dst := image.NewRGBA(image.Rect(0, 0, 120, 120))
		for i := 0; i < rounds; i++ {
			rs := a.Store().Load()
			a.scene.Compose(dst, time.Now(), rs)
			// The face buffer is black, so a lit centre means the eye.
			lit := dst.RGBAAt(60, 60).R != 0
			if (rs.Mode == display.ModeFace) == lit {
				diverged.Add(1)
			}
		}
	}()
	wg.Wait()

	if n := diverged.Load(); n != 0 {
		t.Errorf("%d frames drew a layer that did not match their state", n)
	}
}

func TestApp_ComposeSkipsUnchangedFace(t *testing.T) {
	a := initApp(t, testConfig(t, "http://127.0.0.1:1"))
	ctx := context.Background()

	blue := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for i := 0; i < len(blue.Pix); i += 4 {
		blue.Pix[i+2], blue.Pix[i+3] = 220, 255
	}

	a.apply(display.Status{Mode: display.ModeFace, State: "confirming", HasState: true, Person: "Dave"})
	a.frames.Blit(blue)
	a.composeTick(ctx)
	if got := a.Memory().Frames(); got != 1 {
		t.Fatalf("first face frame: panel frames %d, want 1", got)
	}

	a.composeTick(ctx)
	a.composeTick(ctx)
	if got := a.Memory().Frames(); got != 1 {
		t.Errorf("unchanged face should not be pushed again: panel frames %d", got)
	}
	if got := a.Snapshot().Skipped; got != 2 {
		t.Errorf("Skipped: got %d, want 2", got)
	}

	a.frames.Blit(blue)
	a.composeTick(ctx)
	if got := a.Memory().Frames(); got != 2 {
		t.Errorf("new face frame: panel frames %d, want 2", got)
	}

	a.apply(display.Status{Mode: display.ModeFace, State: "confirming", HasState: true, Person: "Frank"})
	a.composeTick(ctx)
	if got := a.Memory().Frames(); got != 3 {
		t.Errorf("label change: panel frames %d, want 3", got)
	}

	a.apply(display.Status{Mode: display.ModeEye, State: "idle", HasState: true})
	a.composeTick(ctx)
	a.composeTick(ctx)
	if got := a.Memory().Frames(); got != 5 {
		t.Errorf("eye mode animates every tick: panel frames %d, want 5", got)
	}
	if c := centre(a); c.R != 255 {
		t.Errorf("eye should be on the panel, got %+v", c)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Port = 0
	if _, err := New(cfg); err == nil {
		t.Error("expected validation error")
	}
}

func TestApp_RunBeforeInit(t *testing.T) {
	a, err := New(config.Default(), WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Error("Run before Init should fail")
	}
}
