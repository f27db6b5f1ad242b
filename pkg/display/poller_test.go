package display

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-hal/internal/log"
)

func TestPoller_Poll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hal/display" {
			t.Errorf("Expected /api/hal/display, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"mode":"face","state":"speaking","person":"Dave"}`))
	}))
	defer server.Close()

	p := NewPoller(server.URL+"/api/hal/display", WithLogger(log.Discard()))
	st, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if st.Mode != ModeFace || st.State != "speaking" || st.Person != "Dave" {
		t.Errorf("got %+v", st)
	}
}

func TestPoller_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewPoller(server.URL, WithLogger(log.Discard()))
	_, err := p.Poll(context.Background())

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", httpErr.StatusCode)
	}
}

func TestPoller_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":`))
	}))
	defer server.Close()

	p := NewPoller(server.URL, WithLogger(log.Discard()))
	if _, err := p.Poll(context.Background()); !errors.Is(err, ErrMalformedStatus) {
		t.Fatalf("expected ErrMalformedStatus, got %v", err)
	}
}

func TestPoller_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"mode":"face"}`))
	}))
	defer server.Close()

	p := NewPoller(server.URL, WithTimeout(20*time.Millisecond), WithLogger(log.Discard()))
	if _, err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
}

// A failing tick must not touch the state, and a later good tick applies.
func TestPoller_TickFailuresLeaveStateAlone(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.Write([]byte(`not json`))
			return
		}
		w.Write([]byte(`{"mode":"face","state":"awaiting_name"}`))
	}))
	defer server.Close()

	sel := NewSelector(nil)
	sel.Apply(Status{Mode: ModeEye, State: "speaking", HasState: true})
	before := sel.Current()

	p := NewPoller(server.URL, WithLogger(log.Discard()))
	apply := func(st Status) { sel.Apply(st) }

	for i := 0; i < 3; i++ {
		if p.Tick(context.Background(), apply) {
			t.Fatal("tick against a broken backend should report failure")
		}
	}
	if sel.Current() != before {
		t.Errorf("state changed on failure: before %+v, after %+v", before, sel.Current())
	}

	stats := p.Stats()
	if stats.Polls != 3 || stats.Failures != 3 || stats.ConsecutiveFailures != 3 {
		t.Errorf("stats: got %+v", stats)
	}

	healthy.Store(true)
	if !p.Tick(context.Background(), apply) {
		t.Fatal("tick against a healthy backend should succeed")
	}
	rs := sel.Current()
	if rs.Mode != ModeFace || !rs.Flags.Listening {
		t.Errorf("state after recovery: %+v", rs)
	}
	if p.Stats().ConsecutiveFailures != 0 {
		t.Error("consecutive failures should reset after success")
	}
}

func TestPoller_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := NewPoller(url, WithTimeout(200*time.Millisecond), WithLogger(log.Discard()))
	called := false
	p.Tick(context.Background(), func(Status) { called = true })
	if called {
		t.Error("apply must not be called when the backend is down")
	}
}
