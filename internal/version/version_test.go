package version

import (
	"strings"
	"testing"
)

func TestGetCurrentVersion(t *testing.T) {
	if got := GetCurrentVersion("prod"); got != Version {
		t.Errorf("prod version = %q, want %q", got, Version)
	}
	dev := GetCurrentVersion("dev")
	if !strings.HasPrefix(dev, Version+"+") {
		t.Errorf("dev version = %q, want %q prefix", dev, Version+"+")
	}
	if !strings.HasSuffix(dev, GitCommit) {
		t.Errorf("dev version = %q, want %q suffix", dev, GitCommit)
	}
}

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	cases := []struct {
		version string
		target  string
		want    bool
	}{
		{"0.3.0", "0.3.0", true},
		{"0.4.0", "0.3.0", true},
		{"1.0.0", "0.9.9", true},
		{"0.2.9", "0.3.0", false},
		// Pre-release sorts before the release it precedes.
		{"0.0.0-dev", "0.0.0", false},
		{"0.3.0", "0.3.0-rc.1", true},
	}
	for _, tc := range cases {
		if got := IsVersionGreaterOrEqualThan(tc.version, tc.target); got != tc.want {
			t.Errorf("IsVersionGreaterOrEqualThan(%q, %q) = %v, want %v", tc.version, tc.target, got, tc.want)
		}
	}
}
