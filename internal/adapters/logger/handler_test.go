package logger_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/envreload/internal/adapters/logger"
)

func newPrettyLogger(t *testing.T, home string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("HOME", home)

	buf := &bytes.Buffer{}
	return slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})), buf
}

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		msg   string
		want  string
	}{
		{name: "info", level: slog.LevelInfo, msg: "watching 2 files for 1 roots", want: "watching 2 files for 1 roots\n"},
		{name: "root label", level: slog.LevelInfo, msg: "api: reloaded", want: "api: reloaded\n"},
		{name: "warn", level: slog.LevelWarn, msg: "cannot allocate a terminal", want: "! cannot allocate a terminal\n"},
		{name: "error", level: slog.LevelError, msg: "Error: boom", want: "✗ Error: boom\n"},
		{name: "debug filtered", level: slog.LevelDebug, msg: "hidden", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newPrettyLogger(t, t.TempDir())
			lg.Log(t.Context(), tt.level, tt.msg)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	home := t.TempDir()
	stamp := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name string
		log  func(lg *slog.Logger)
		want string
	}{
		{
			name: "root under home is shortened",
			log:  func(lg *slog.Logger) { lg.Info("reloaded", "root", filepath.Join(home, "src", "api")) },
			want: "reloaded root=~/src/api\n",
		},
		{
			name: "path outside home is kept",
			log:  func(lg *slog.Logger) { lg.Info("reloaded", "descriptor", "/work/api/.envrc") },
			want: "reloaded descriptor=/work/api/.envrc\n",
		},
		{
			name: "non-path key is not shortened",
			log:  func(lg *slog.Logger) { lg.Info("reloaded", "note", filepath.Join(home, "x")) },
			want: "reloaded note=" + filepath.Join(home, "x") + "\n",
		},
		{
			name: "time is RFC3339",
			log:  func(lg *slog.Logger) { lg.Info("stamped", "mtime", stamp) },
			want: "stamped mtime=2026-03-04T05:06:07Z\n",
		},
		{
			name: "values with spaces are quoted",
			log:  func(lg *slog.Logger) { lg.Warn("rebuild", "command", "direnv exec . true") },
			want: "! rebuild command=\"direnv exec . true\"\n",
		},
		{
			name: "handler attrs and group",
			log: func(lg *slog.Logger) {
				lg.With("artifact", filepath.Join(home, ".direnv", "a.rc")).WithGroup("tool").Info("done", "code", 0)
			},
			want: "done artifact=~/.direnv/a.rc tool.code=0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newPrettyLogger(t, home)
			tt.log(lg)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
