package display

import (
	"sync/atomic"
	"time"
)

// Status label texts.
const (
	LabelInitializing = "Initializing..."
	LabelOnline       = "HAL 9000 Online"
	LabelListening    = "Listening..."
	LabelSpeaking     = "Speaking..."
)

// RenderState is everything the render tasks need from the last poll.
type RenderState struct {
	Mode   Mode   `json:"mode"`
	Flags  Flags  `json:"flags"`
	State  string `json:"state"`
	Person string `json:"person,omitempty"`

	// Online is false until the first successful poll.
	Online bool `json:"online"`
	// Polls counts successful polls folded into this state.
	Polls     uint64    `json:"polls"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitialState is the state before any poll: eye mode, all flags clear.
func InitialState() RenderState {
	return RenderState{Mode: ModeEye}
}

// Label returns the status label text for this state.
func (s RenderState) Label() string {
	switch {
	case !s.Online:
		return LabelInitializing
	case s.Mode == ModeFace && s.Person != "":
		return s.Person
	case s.Flags.Listening:
		return LabelListening
	case s.Flags.Speaking:
		return LabelSpeaking
	default:
		return LabelOnline
	}
}

// Selector folds poll results into the current RenderState.
// It is owned by the poll task and is not safe for concurrent use.
type Selector struct {
	classify Classifier
	current  RenderState
	now      func() time.Time

	transitions uint64
}

// NewSelector creates a selector starting in eye mode.
// A nil classifier means Classify.
func NewSelector(classify Classifier) *Selector {
	if classify == nil {
		classify = Classify
	}
	return &Selector{
		classify: classify,
		current:  InitialState(),
		now:      time.Now,
	}
}

// Apply folds a status into the state. It returns the new state and whether
// the mode changed; repeated statuses with the same mode never report a
// transition, even when the flags change.
func (s *Selector) Apply(st Status) (RenderState, bool) {
	next := s.current

	if st.HasState {
		next.State = st.State
		next.Flags = s.classify(st.State)
	}
	next.Person = st.Person
	next.Online = true
	next.Polls++
	next.UpdatedAt = s.now()

	changed := st.Mode != s.current.Mode
	next.Mode = st.Mode
	if changed {
		s.transitions++
	}

	s.current = next
	return next, changed
}

// Current returns the last state produced by Apply.
func (s *Selector) Current() RenderState {
	return s.current
}

// Transitions returns how many mode changes Apply has reported.
func (s *Selector) Transitions() uint64 {
	return s.transitions
}

// Store is the single hand-off point between the poll task (one writer) and
// the render tasks (readers). Readers always see a complete state.
type Store struct {
	v atomic.Pointer[RenderState]
}

// NewStore creates a store holding InitialState.
func NewStore() *Store {
	s := &Store{}
	init := InitialState()
	s.v.Store(&init)
	return s
}

// Load returns the latest state.
func (s *Store) Load() RenderState {
	return *s.v.Load()
}

// Mode returns the latest mode.
func (s *Store) Mode() Mode {
	return s.v.Load().Mode
}

// Set publishes a new state.
func (s *Store) Set(rs RenderState) {
	s.v.Store(&rs)
}
