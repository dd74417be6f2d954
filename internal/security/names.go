// Package security validates externally supplied identifiers before they
// touch the filesystem.
package security

import (
	"fmt"
	"strings"
)

// maxSegmentNameLen mirrors the NAME_MAX headroom left after the lock
// suffixes are appended.
const maxSegmentNameLen = 192

// ValidateSegmentName checks a shared-memory object name before it is
// joined under the segment directory. Names arrive from CLI flags and
// config files, so path separators and traversal components are rejected
// rather than cleaned.
func ValidateSegmentName(name string) error {
	if name == "" {
		return fmt.Errorf("segment name must not be empty")
	}
	if len(name) > maxSegmentNameLen {
		return fmt.Errorf("segment name too long: %d characters (max %d)", len(name), maxSegmentNameLen)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("segment name %q must not contain path separators", name)
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("segment name %q must not contain traversal components", name)
	}
	return nil
}
