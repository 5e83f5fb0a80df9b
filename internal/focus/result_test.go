package focus

import (
	"strings"
	"testing"
)

func TestNavigationError(t *testing.T) {
	tests := []struct {
		name    string
		history []string
		wantNil bool
	}{
		{"empty", nil, true},
		{"single", []string{"http://a/"}, true},
		{"same", []string{"http://a/", "http://a/"}, true},
		{"moved", []string{"http://a/", "http://b/"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := navigationError(tt.history)
			if (err == nil) != tt.wantNil {
				t.Fatalf("navigationError(%v) = %v", tt.history, err)
			}
			if err != nil && !strings.Contains(err.Message, "http://b/") {
				t.Errorf("message should mention destination: %s", err.Message)
			}
		})
	}
}
