package log

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorOff    = "\033[0m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// terminalHandler renders records as single coloured lines:
//
//	15:04:05.000 INF repository queued repo=octocat/hello
//
// Attributes attached via WithAttrs are formatted once and reused for every
// record; group names become dotted key prefixes.
type terminalHandler struct {
	out      io.Writer
	min      slog.Leveler
	rendered string
	scope    string
	mu       *sync.Mutex
}

func newTerminalHandler(w io.Writer, level slog.Leveler) *terminalHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &terminalHandler{out: w, min: level, mu: &sync.Mutex{}}
}

// Enabled reports whether records at the given level are emitted.
func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min.Level()
}

// Handle renders one record and writes it as a single line.
func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	b.WriteString(colorDim)
	b.WriteString(when.Format("15:04:05.000"))
	b.WriteString(colorOff)
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(colorBold)
	b.WriteString(r.Message)
	b.WriteString(colorOff)
	b.WriteString(h.rendered)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.scope, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// WithAttrs returns a handler that prefixes every record with attrs.
func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.rendered)
	for _, a := range attrs {
		writeAttr(&b, h.scope, a)
	}
	clone := *h
	clone.rendered = b.String()
	return &clone
}

// WithGroup returns a handler that dots the group name onto attribute keys.
func (h *terminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.scope = h.scope + name + "."
	return &clone
}

func levelTag(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return colorCyan + "DBG" + colorOff
	case level < slog.LevelWarn:
		return colorGreen + "INF" + colorOff
	case level < slog.LevelError:
		return colorYellow + "WRN" + colorOff
	default:
		return colorRed + "ERR" + colorOff
	}
}

func writeAttr(b *strings.Builder, scope string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		inner := scope
		if a.Key != "" {
			inner = scope + a.Key + "."
		}
		for _, member := range a.Value.Group() {
			writeAttr(b, inner, member)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(colorDim)
	b.WriteString(scope)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(colorOff)
	b.WriteString(attrText(a.Value))
}

// attrText quotes string values containing whitespace or quoting so the
// line stays parseable by eye.
func attrText(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && strings.ContainsAny(s, " \t\n\"\\") {
		return strconv.Quote(s)
	}
	return s
}
