package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "console")
	l, err := NewLoggerFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn enabled at error level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("error disabled at error level")
	}
}

func TestSetGlobalIgnoresNil(t *testing.T) {
	prev := L()
	t.Cleanup(func() { SetGlobal(prev) })

	l := NewNoOpLogger().Named("x")
	SetGlobal(l)
	SetGlobal(nil)
	if L() != l {
		t.Fatal("nil replaced the global logger")
	}
}
