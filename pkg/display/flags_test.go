package display

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		state     string
		listening bool
		speaking  bool
	}{
		{"idle", false, false},
		{"", false, false},
		{"listening", true, false},
		{"awaiting_yes_no", true, false},
		{"awaiting_name", true, false},
		{"speaking", false, true},
		{"asking_remember", false, true},
		{"asking_name", false, true},
		{"confirming", false, true},
		{"still_listening_while_speaking", true, true},
		// Case-sensitive: only exact lowercase markers count.
		{"LISTENING", false, false},
		{"Speaking", false, false},
		{"pulsing", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got := Classify(tt.state)
			if got.Listening != tt.listening {
				t.Errorf("Listening: got %v, want %v", got.Listening, tt.listening)
			}
			if got.Speaking != tt.speaking {
				t.Errorf("Speaking: got %v, want %v", got.Speaking, tt.speaking)
			}
		})
	}
}

func TestClassify_SubstringProperty(t *testing.T) {
	prefixes := []string{"", "x", "pre_", "Dave ", "123"}
	suffixes := []string{"", "y", "_post", " now", "!"}

	for _, p := range prefixes {
		for _, s := range suffixes {
			for _, m := range listeningMarkers {
				if !Classify(p + m + s).Listening {
					t.Errorf("%q must classify as listening", p+m+s)
				}
			}
			for _, m := range speakingMarkers {
				if !Classify(p + m + s).Speaking {
					t.Errorf("%q must classify as speaking", p+m+s)
				}
			}
		}
	}
}

func TestClassifyStrict(t *testing.T) {
	for _, state := range KnownStates() {
		if !IsKnownState(state) {
			t.Errorf("%q should be known", state)
		}
		// The closed set agrees with substring classification on its own codes.
		if ClassifyStrict(state) != Classify(state) {
			t.Errorf("%q: strict %+v differs from substring %+v", state, ClassifyStrict(state), Classify(state))
		}
	}

	if f := ClassifyStrict("Listening Larry"); !f.Idle() {
		t.Errorf("unknown state should be idle, got %+v", f)
	}
	if f := ClassifyStrict("awaiting_something_new"); !f.Idle() {
		t.Errorf("unknown state should be idle, got %+v", f)
	}
}
