package fetch

import (
	"errors"
	"testing"
)

func TestDecide(t *testing.T) {
	testCases := []struct {
		name  string
		check CheckMode
		probe Probe
		local localState
		want  Decision
	}{
		{"size equal", CheckSize, Probe{ContentLength: 1024}, localState{exists: true, size: 1024}, DecisionUpToDate},
		{"size differs", CheckSize, Probe{ContentLength: 2048}, localState{exists: true, size: 1024}, DecisionNeedsDownload},
		{"size unknown remote", CheckSize, Probe{ContentLength: -1}, localState{exists: true, size: 0}, DecisionNeedsDownload},
		{"size missing local", CheckSize, Probe{ContentLength: 0}, localState{}, DecisionNeedsDownload},
		{"size ignores token", CheckSize, Probe{ContentLength: 5, LastModified: "a"}, localState{exists: true, size: 4, hasToken: true, token: "a"}, DecisionNeedsDownload},
		{"modified equal", CheckModified, Probe{LastModified: "a", ContentLength: -1}, localState{exists: true, hasToken: true, token: "a"}, DecisionUpToDate},
		{"modified missing file", CheckModified, Probe{LastModified: "a", ContentLength: -1}, localState{hasToken: true, token: "a"}, DecisionNeedsDownload},
		{"modified not normalised", CheckModified, Probe{LastModified: "a"}, localState{exists: true, hasToken: true, token: "a\n"}, DecisionNeedsDownload},
		{"modified missing remote", CheckModified, Probe{}, localState{hasToken: true, token: ""}, DecisionNeedsDownload},
		{"modified missing meta", CheckModified, Probe{LastModified: "a"}, localState{}, DecisionNeedsDownload},
		{"probe failed", CheckSize, Probe{ContentLength: 1, Err: errors.New("boom")}, localState{exists: true, size: 1}, DecisionNeedsDownload},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := decide(tc.check, tc.probe, tc.local); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestParseCheckMode(t *testing.T) {
	if mode, err := ParseCheckMode(""); err != nil || mode != CheckSize {
		t.Fatalf("empty should default to size, got %s %v", mode, err)
	}
	if mode, err := ParseCheckMode(" Modified "); err != nil || mode != CheckModified {
		t.Fatalf("expected modified, got %s %v", mode, err)
	}
	if _, err := ParseCheckMode("etag"); err == nil {
		t.Fatalf("etag is not a supported strategy")
	}
}
