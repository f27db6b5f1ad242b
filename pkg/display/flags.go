package display

import "strings"

// Flags are the listening/speaking booleans that drive the eye animation.
// Both may be true at once; the eye gives listening precedence.
type Flags struct {
	Listening bool `json:"listening"`
	Speaking  bool `json:"speaking"`
}

// Idle reports whether neither flag is set.
func (f Flags) Idle() bool {
	return !f.Listening && !f.Speaking
}

// Classifier derives flags from a backend state string.
type Classifier func(state string) Flags

var (
	listeningMarkers = []string{"listening", "awaiting"}
	speakingMarkers  = []string{"speaking", "asking", "confirming"}
)

// Classify uses case-sensitive substring checks, so new backend states such
// as "awaiting_confirmation" classify without a firmware change.
func Classify(state string) Flags {
	return Flags{
		Listening: containsAny(state, listeningMarkers),
		Speaking:  containsAny(state, speakingMarkers),
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Backend conversation states.
const (
	StateIdle           = "idle"
	StateAskingRemember = "asking_remember"
	StateAwaitingYesNo  = "awaiting_yes_no"
	StateAskingName     = "asking_name"
	StateAwaitingName   = "awaiting_name"
	StateConfirming     = "confirming"
	StateListening      = "listening"
	StateSpeaking       = "speaking"
)

// knownStates is the closed set used by ClassifyStrict.
var knownStates = map[string]Flags{
	StateIdle:           {},
	StateAskingRemember: {Speaking: true},
	StateAwaitingYesNo:  {Listening: true},
	StateAskingName:     {Speaking: true},
	StateAwaitingName:   {Listening: true},
	StateConfirming:     {Speaking: true},
	StateListening:      {Listening: true},
	StateSpeaking:       {Speaking: true},
}

// KnownStates returns the state codes ClassifyStrict recognises.
func KnownStates() []string {
	return []string{
		StateIdle, StateAskingRemember, StateAwaitingYesNo, StateAskingName,
		StateAwaitingName, StateConfirming, StateListening, StateSpeaking,
	}
}

// ClassifyStrict only accepts exact backend state codes. Unknown codes are
// idle, so a person named "Listening" can never light the eye.
func ClassifyStrict(state string) Flags {
	return knownStates[state]
}

// IsKnownState reports whether state is one of KnownStates.
func IsKnownState(state string) bool {
	_, ok := knownStates[state]
	return ok
}
