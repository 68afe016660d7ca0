package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"debug", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"error", zap.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	for _, dev := range []bool{false, true} {
		log, err := New("warn", dev)
		if err != nil {
			t.Fatalf("New(dev=%v): %v", dev, err)
		}
		if log.Core().Enabled(zap.InfoLevel) {
			t.Errorf("dev=%v: info must be disabled at warn level", dev)
		}
		if !log.Core().Enabled(zap.ErrorLevel) {
			t.Errorf("dev=%v: error must be enabled", dev)
		}
	}

	if _, err := New("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}
