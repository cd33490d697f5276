package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"jukebox/internal/config"
)

// New builds a logger writing to w. Format "console" produces single-line
// human output with the component folded into a prefix before the message;
// "json" produces one object per line with ts/level/msg keys.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl := new(slog.LevelVar)
	lvl.Set(parseLevel(level))
	addSource := lvl.Level() <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "":
		return slog.New(newConsoleHandler(w, lvl, addSource)), nil
	case "json":
		return slog.New(newJSONHandler(w, lvl, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// NewFromConfig creates the daemon logger: stdout plus, when a log directory
// is configured, an append-only jukeboxd.log next to the rest of the state.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New("info", "console", os.Stdout)
	}

	out := io.Writer(os.Stdout)
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(cfg.Paths.LogDir, "jukeboxd.log")
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logPath, err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	return New(cfg.Logging.Level, cfg.Logging.Format, out)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "msg"
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}

// consoleHandler renders one line per record:
//
//	2026-08-29 14:03:17 INFO worker: claim acquired reference=trk-1 correlation_id=b2a7
//
// The component attribute becomes the prefix before the message. Job identity
// attributes lead the key=value tail and error detail trails it, so the lines
// for one claim read left to right: which job, what happened, what went wrong.
type consoleHandler struct {
	writer    io.Writer
	level     *slog.LevelVar
	addSource bool

	// mu is shared across clones so With-derived loggers serialize on the
	// same writer.
	mu *sync.Mutex

	component string
	prefix    string
	attrs     []slog.Attr
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{writer: w, level: lvl, addSource: addSource, mu: &sync.Mutex{}}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component := h.component
	attrs := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attr.Value = attr.Value.Resolve()
		if attr.Key == FieldComponent && component == "" {
			component = attr.Value.String()
			return true
		}
		attrs = appendFlattened(attrs, attr, h.prefix)
		return true
	})
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrRank(attrs[i].Key) < attrRank(attrs[j].Key)
	})

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var b strings.Builder
	b.Grow(96 + len(attrs)*24)
	b.WriteString(timestamp.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')
	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.File != "" {
			b.WriteString(" [")
			b.WriteString(filepath.Base(frame.File))
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(frame.Line))
			b.WriteByte(']')
		}
	}
	for _, attr := range attrs {
		if attr.Key == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(attr.Key)
		b.WriteByte('=')
		b.WriteString(renderValue(attr.Value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		attr.Value = attr.Value.Resolve()
		if attr.Key == FieldComponent && clone.component == "" {
			clone.component = attr.Value.String()
			continue
		}
		clone.attrs = appendFlattened(clone.attrs, attr, clone.prefix)
	}
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = clone.prefix + name + "."
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		mu:        h.mu,
		component: h.component,
		prefix:    h.prefix,
	}
	if len(h.attrs) > 0 {
		clone.attrs = append([]slog.Attr(nil), h.attrs...)
	}
	return clone
}

func appendFlattened(dst []slog.Attr, attr slog.Attr, prefix string) []slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = next + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendFlattened(dst, member, next)
		}
		return dst
	}
	attr.Key = prefix + attr.Key
	return append(dst, attr)
}

// attrRank orders the key=value tail: job identity first, error detail last.
func attrRank(key string) int {
	switch key {
	case FieldReference:
		return 0
	case FieldCorrelationID:
		return 1
	case FieldEventType:
		return 2
	case "error":
		return 4
	case FieldErrorHint:
		return 5
	default:
		return 3
	}
}

func renderValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprintf("%v", v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
