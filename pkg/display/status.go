// Package display turns the backend's display status into render state.
//
// A Poller fetches the status document, Classify derives the listening and
// speaking flags, a Selector folds each status into the current RenderState
// and reports mode transitions, and a Store hands the latest state to the
// render tasks.
package display

import (
	"encoding/json"
	"fmt"
)

// Mode is the display's exclusive visual state.
type Mode int

const (
	// ModeEye shows the animated eye. It is the initial mode.
	ModeEye Mode = iota
	// ModeFace shows the camera-derived face frame.
	ModeFace
)

// ParseMode maps the wire value to a Mode. Only "face" selects ModeFace;
// every other value is treated as the eye, like the firmware does.
func ParseMode(s string) Mode {
	if s == "face" {
		return ModeFace
	}
	return ModeEye
}

// String returns the wire value.
func (m Mode) String() string {
	if m == ModeFace {
		return "face"
	}
	return "eye"
}

// MarshalJSON encodes the mode as its wire string.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a wire string with ParseMode.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ParseMode(s)
	return nil
}

// Status is one decoded /api/hal/display document.
// It lives for a single poll cycle.
type Status struct {
	Mode Mode
	// State is the free-form backend state string.
	State string
	// HasState is false when the document carried no string state;
	// the previous flags are kept in that case.
	HasState bool
	// Person is the display name, normally present only in face mode.
	Person string
}

type wireStatus struct {
	Mode   *string         `json:"mode"`
	State  json.RawMessage `json:"state"`
	Person json.RawMessage `json:"person"`
}

// ParseStatus decodes a status body. A body that is not a JSON object or has
// no string "mode" is malformed.
func ParseStatus(body []byte) (Status, error) {
	var w wireStatus
	if err := json.Unmarshal(body, &w); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	if w.Mode == nil {
		return Status{}, fmt.Errorf("%w: missing mode", ErrMalformedStatus)
	}

	st := Status{Mode: ParseMode(*w.Mode)}
	if s, ok := rawString(w.State); ok {
		st.State = s
		st.HasState = true
	}
	if s, ok := rawString(w.Person); ok {
		st.Person = s
	}
	return st, nil
}

// rawString reports whether raw holds a JSON string and returns it.
func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
