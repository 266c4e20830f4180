package util

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ConfigureSlog sets a tint handler writing to w as the default slog logger.
// When addSource is set, source locations are printed relative to the working dir.
func ConfigureSlog(w io.Writer, level slog.Leveler, addSource bool) {
	opts := &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  addSource,
		NoColor:    !isTerminal(w),
	}
	if wd, err := os.Getwd(); err == nil && addSource {
		unixPath := filepath.ToSlash(wd)
		opts.ReplaceAttr = func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key != slog.SourceKey {
				return attr
			}
			source, ok := attr.Value.Any().(*slog.Source)
			if !ok {
				return attr
			}
			var sb strings.Builder
			sb.WriteString(".")
			sb.WriteString(strings.TrimPrefix(filepath.ToSlash(source.File), unixPath))
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(source.Line))
			return slog.String(attr.Key, sb.String())
		}
	}
	slog.SetDefault(slog.New(tint.NewHandler(w, opts)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
