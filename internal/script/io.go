package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/animscene/internal/system"
)

// ReadScript reads and validates a script file.
func ReadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a script and validates it. Unknown keys are rejected so
// typos in effect names do not pass silently.
func Parse(data []byte) (*Script, error) {
	var sc Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// WriteScript writes sc as YAML, creating parent directories.
func WriteScript(sc *Script, path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GenerateScriptPath returns a timestamped script file name in dir.
func GenerateScriptPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("script_%s.yaml", timestamp))
}

// FindLatestScript returns the most recently modified script in dir.
func FindLatestScript(dir string) (string, error) {
	return system.FindLatest(dir, system.ScriptExts...)
}
