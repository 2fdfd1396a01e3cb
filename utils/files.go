package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"price-watcher/internal/types"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

const maxArtifactNameLength = 70

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// SafeArtifactName collapses every run of non-alphanumeric characters to a
// single underscore and caps the length.
func SafeArtifactName(name string) string {
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if len(safe) > maxArtifactNameLength {
		safe = safe[:maxArtifactNameLength]
	}
	return safe
}

// DebugWriter stores the rendered markup and a screenshot of a page whose
// price could not be extracted.
type DebugWriter struct {
	dir    string
	logger types.Logger
}

// NewDebugWriter creates a writer rooted at dir
func NewDebugWriter(dir string, logger types.Logger) *DebugWriter {
	if dir == "" {
		dir = "."
	}
	return &DebugWriter{dir: dir, logger: logger}
}

// Save writes debug_<name>.html and, when a screenshot is present,
// debug_<name>.png. Failures are logged, never returned.
func (d *DebugWriter) Save(itemName, html string, screenshot []byte) {
	base := filepath.Join(d.dir, "debug_"+SafeArtifactName(itemName))

	if err := os.WriteFile(base+".html", []byte(html), 0644); err != nil {
		d.logger.Warnf("Failed to write debug markup for %s: %v", itemName, err)
	} else {
		d.logger.Debugf("Saved debug markup to %s.html", base)
	}

	if len(screenshot) == 0 {
		return
	}
	if err := os.WriteFile(base+".png", screenshot, 0644); err != nil {
		d.logger.Warnf("Failed to write debug screenshot for %s: %v", itemName, err)
	}
}
