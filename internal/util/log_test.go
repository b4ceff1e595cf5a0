package util

import (
	"testing"

	"github.com/pterm/pterm"
)

func TestSetLogLevel(t *testing.T) {
	prev := pterm.DefaultLogger.Level
	defer func() { pterm.DefaultLogger.Level = prev }()

	tests := []struct {
		name    string
		want    pterm.LogLevel
		wantErr bool
	}{
		{"debug", pterm.LogLevelDebug, false},
		{" WARN ", pterm.LogLevelWarn, false},
		{"error", pterm.LogLevelError, false},
		{"info", pterm.LogLevelInfo, false},
		{"verbose", pterm.LogLevelInfo, true},
	}
	for _, tt := range tests {
		err := SetLogLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if pterm.DefaultLogger.Level != tt.want {
			t.Errorf("after SetLogLevel(%q) level = %v, want %v", tt.name, pterm.DefaultLogger.Level, tt.want)
		}
	}
}
