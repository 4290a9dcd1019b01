package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{27BF}\x{FE0F}]+`)

func parseLevel(level string) slog.Level {
	switch level {
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

// Setup installs the default JSON logger on stdout. When file is set, records
// are also appended to that file. The returned closer releases the file.
func Setup(level, file string) (io.Closer, error) {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: stripEmoji,
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	var closer io.Closer = nopCloser{}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		handler = NewMultiHandler(handler, slog.NewJSONHandler(f, opts))
		closer = f
	}

	slog.SetDefault(slog.New(handler))
	return closer, nil
}

func stripEmoji(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.MessageKey && a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(StripEmoji(a.Value.String()))
	}
	return a
}

// StripEmoji removes pictographs and collapses the leftover double spaces.
func StripEmoji(s string) string {
	if !emojiPattern.MatchString(s) {
		return s
	}
	s = emojiPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func Fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
