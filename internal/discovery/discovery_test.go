package discovery

import "testing"

func TestIsEventNode(t *testing.T) {
	cases := map[string]bool{
		"/dev/input/event3":  true,
		"/dev/input/js0":     false,
		"/dev/input/mice":    false,
		"/dev/input/event12": true,
	}
	for path, want := range cases {
		if got := isEventNode(path); got != want {
			t.Errorf("isEventNode(%q) = %v, want %v", path, got, want)
		}
	}
}
