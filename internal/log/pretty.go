package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	escReset  = "\033[0m"
	escFaint  = "\033[2m"
	escBold   = "\033[1m"
	escRed    = "\033[31m"
	escGreen  = "\033[32m"
	escYellow = "\033[33m"
	escBlue   = "\033[34m"
)

// prettyHandler renders records as single coloured lines for terminals:
//
//	12:34:56.789 INFO clone finished repo=42 took=1.2s
type prettyHandler struct {
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix []string
	mu     *sync.Mutex
}

func newPrettyHandler(w io.Writer, level slog.Leveler) *prettyHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &prettyHandler{out: w, level: level, mu: &sync.Mutex{}}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(192)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(&buf, "%s%s%s ", escFaint, ts.Format("15:04:05.000"), escReset)

	colour, label := style(r.Level)
	fmt.Fprintf(&buf, "%s%-5s%s ", colour, label, escReset)

	buf.WriteString(escBold)
	buf.WriteString(r.Message)
	buf.WriteString(escReset)

	for _, a := range h.attrs {
		h.writeAttr(&buf, a, h.prefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a, h.prefix)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = append(append([]string{}, h.prefix...), name)
	return &next
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, a slog.Attr, prefix []string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		nested := prefix
		if a.Key != "" {
			nested = append(append([]string{}, prefix...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, ga, nested)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(escFaint)
	for _, p := range prefix {
		buf.WriteString(p)
		buf.WriteByte('.')
	}
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(escReset)
	buf.WriteString(quoteIfNeeded(a.Value))
}

func quoteIfNeeded(v slog.Value) string {
	if v.Kind() == slog.KindString {
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"\\") {
			return fmt.Sprintf("%q", s)
		}
		return s
	}
	return v.String()
}

func style(level slog.Level) (colour, label string) {
	switch {
	case level < slog.LevelInfo:
		return escBlue, "DEBUG"
	case level < slog.LevelWarn:
		return escGreen, "INFO"
	case level < slog.LevelError:
		return escYellow, "WARN"
	default:
		return escRed, "ERROR"
	}
}
