package security

import (
	"strings"
	"testing"
)

func TestValidateSegmentName(t *testing.T) {
	valid := []string{
		"navcore",
		"navcore_lidar_data",
		"a",
		strings.Repeat("x", 192),
	}
	for _, name := range valid {
		if err := ValidateSegmentName(name); err != nil {
			t.Errorf("ValidateSegmentName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		strings.Repeat("x", 193),
		"a/b",
		"a\\b",
		"/navcore",
		".",
		"..",
		"../navcore",
		"nav..core",
	}
	for _, name := range invalid {
		if err := ValidateSegmentName(name); err == nil {
			t.Errorf("ValidateSegmentName(%q) = nil, want error", name)
		}
	}
}
