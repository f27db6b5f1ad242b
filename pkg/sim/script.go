// Package sim is a stand-in for the HAL backend's display endpoints, driven
// by a scripted conversation.
package sim

import (
	"context"
	"time"

	"github.com/teslashibe/go-hal/pkg/display"
)

// Step is one status document the backend would report.
type Step struct {
	Mode   display.Mode
	State  string
	Person string
}

// DefaultPerson is named once the script reaches confirmation.
const DefaultPerson = "Dave"

// Conversation walks the backend controller through meeting a stranger:
// HAL asks to remember them, waits for yes/no, asks and waits for the name,
// confirms, then goes idle again.
func Conversation(person string) []Step {
	return []Step{
		{Mode: display.ModeEye, State: display.StateIdle},
		{Mode: display.ModeFace, State: display.StateAskingRemember},
		{Mode: display.ModeFace, State: display.StateAwaitingYesNo},
		{Mode: display.ModeFace, State: display.StateAskingName},
		{Mode: display.ModeFace, State: display.StateAwaitingName},
		{Mode: display.ModeFace, State: display.StateConfirming, Person: person},
	}
}

// Current returns the step being served.
func (s *Simulator) Current() Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.override != nil {
		return *s.override
	}
	return s.script[s.pos]
}

// Advance moves the script forward one step, wrapping to the start, and
// returns the new step. It does nothing while an override is set.
func (s *Simulator) Advance() Step {
	s.mu.Lock()
	if s.override != nil {
		st := *s.override
		s.mu.Unlock()
		return st
	}
	s.pos = (s.pos + 1) % len(s.script)
	st := s.script[s.pos]
	s.mu.Unlock()

	s.logger.Info("script advanced", "mode", st.Mode.String(), "state", st.State, "person", st.Person)
	return st
}

// Override pins the served status until ClearOverride.
func (s *Simulator) Override(st Step) {
	s.mu.Lock()
	s.override = &st
	s.mu.Unlock()
	s.logger.Info("status overridden", "mode", st.Mode.String(), "state", st.State)
}

// ClearOverride resumes the script where it paused.
func (s *Simulator) ClearOverride() {
	s.mu.Lock()
	s.override = nil
	s.mu.Unlock()
}

// Overridden reports whether an override is active.
func (s *Simulator) Overridden() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.override != nil
}

// Run advances the script every step until ctx is done.
func (s *Simulator) Run(ctx context.Context, step time.Duration) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}
