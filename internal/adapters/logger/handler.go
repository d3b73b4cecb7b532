package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/envreload/internal/ui/output"
	"go.trai.ch/envreload/internal/ui/style"
)

// pathKeys are attributes holding filesystem locations inside an environment root.
var pathKeys = map[string]bool{
	"root":       true,
	"descriptor": true,
	"artifact":   true,
	"cache_dir":  true,
}

// PrettyHandler is a slog.Handler that writes one colored line per record.
//
// A leading "<root>: " label on info messages is highlighted, path attributes
// are shortened relative to the home directory and all attributes trail the
// message in a muted color.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []string
	group string
	home  string
}

// NewPrettyHandler creates a new PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelInfo)
	if opts != nil && opts.Level != nil {
		levelVar.Set(opts.Level.Level())
	}

	home, _ := os.UserHomeDir()

	return &PrettyHandler{
		out:   output.New(w),
		level: levelVar,
		home:  home,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	icon, color := levelStyle(r.Level)

	var b strings.Builder
	if icon != "" {
		b.WriteString(output.Paint(h.out, icon, string(color)))
		b.WriteByte(' ')
	}

	label, rest := "", r.Message
	if r.Level < slog.LevelWarn {
		label, rest = splitRootLabel(r.Message)
	}
	if label != "" {
		b.WriteString(h.out.String(label).Foreground(h.out.Color(string(style.Iris))).Bold().String())
		b.WriteString(output.Paint(h.out, ":", string(color)))
	}
	b.WriteString(output.Paint(h.out, rest, string(color)))

	attrParts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	attrParts = append(attrParts, h.attrs...)
	r.Attrs(func(attr slog.Attr) bool {
		attrParts = append(attrParts, h.formatAttr(attr))
		return true
	})
	if len(attrParts) > 0 {
		b.WriteByte(' ')
		b.WriteString(output.Paint(h.out, strings.Join(attrParts, " "), string(style.Slate)))
	}

	b.WriteByte('\n')
	_, err := h.out.WriteString(b.String())
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
// They are rendered now, under the current group.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]string, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, h.formatAttr(attr))
	}
	return &clone
}

// WithGroup returns a new Handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name
	return &clone
}

func levelStyle(level slog.Level) (icon string, color lipgloss.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, style.Red
	case level >= slog.LevelWarn:
		return style.Warning, style.Yellow
	default:
		return "", style.Slate
	}
}

// splitRootLabel separates a "<root>: " prefix from the message.
// Labels are single words, so ordinary sentences with a colon are left whole.
func splitRootLabel(msg string) (label, rest string) {
	name, tail, ok := strings.Cut(msg, ": ")
	if !ok || name == "" || strings.ContainsAny(name, " \t/") {
		return "", msg
	}
	return name, " " + tail
}

func (h *PrettyHandler) formatAttr(attr slog.Attr) string {
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}

	attr.Value = attr.Value.Resolve()
	var value string
	switch {
	case attr.Value.Kind() == slog.KindTime:
		value = attr.Value.Time().Format(time.RFC3339)
	case pathKeys[attr.Key] && attr.Value.Kind() == slog.KindString:
		value = h.shortenPath(attr.Value.String())
	default:
		value = attr.Value.String()
	}

	if strings.ContainsAny(value, " \t\"") {
		value = strconv.Quote(value)
	}
	return key + "=" + value
}

// shortenPath replaces the home directory prefix of an absolute path with "~".
func (h *PrettyHandler) shortenPath(p string) string {
	if h.home == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(h.home, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	if rel == "." {
		return "~"
	}
	return filepath.Join("~", rel)
}
