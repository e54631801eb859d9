package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     LogLevel
		logFn     func(msg string, args ...any)
		msg       string
		wantShown bool
	}{
		{name: "debug hidden at info", level: LevelInfo, logFn: Debug, msg: "debug-msg", wantShown: false},
		{name: "info shown at info", level: LevelInfo, logFn: Info, msg: "info-msg", wantShown: true},
		{name: "debug shown at debug", level: LevelDebug, logFn: Debug, msg: "debug-msg", wantShown: true},
		{name: "warn shown at warn", level: LevelWarn, logFn: Warn, msg: "warn-msg", wantShown: true},
		{name: "info hidden at error", level: LevelError, logFn: Info, msg: "info-msg", wantShown: false},
		{name: "unknown level defaults to info", level: LogLevel("verbose"), logFn: Info, msg: "info-msg", wantShown: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetupLogger(&buf, tc.level)

			tc.logFn(tc.msg, "key", "value")

			got := strings.Contains(buf.String(), tc.msg)
			if got != tc.wantShown {
				t.Errorf("message shown = %v, want %v (output: %q)", got, tc.wantShown, buf.String())
			}
		})
	}

	// Restore default for other tests
	SetupLogger(&bytes.Buffer{}, LevelInfo)
}

func TestMaskSensitive(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty value", value: "", want: "<not set>"},
		{name: "short value", value: "abc", want: "<set>"},
		{name: "long value", value: "sk-verysecrettoken", want: "sk-v...***"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskSensitive(tc.value); got != tc.want {
				t.Errorf("MaskSensitive(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
