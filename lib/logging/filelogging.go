package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
)

// Logger returns the application logger. Without a path it writes to stdout,
// otherwise to a dated file next to logFilePath.
func Logger(logFilePath string) *lecho.Logger {
	var target io.Writer = os.Stdout
	if logFilePath != "" {
		file, err := GetLoggingFile(logFilePath, time.Now())
		if err != nil {
			lecho.New(os.Stderr).Errorf("failed to open logging file: %v", err)
		} else {
			target = file
		}
	}
	zl := zerolog.New(target).With().Timestamp().Logger()
	return lecho.From(zl, lecho.WithLevel(log.DEBUG))
}

// GetLoggingFile opens (or creates) the log file of the day, e.g. gestiohub-2026-03-05.log.
func GetLoggingFile(path string, day time.Time) (*os.File, error) {
	extension := filepath.Ext(path)
	suffix := day.Format("-2006-01-02")
	if extension != "" {
		path = strings.TrimSuffix(path, extension) + suffix + extension
	} else {
		path = path + suffix + ".log"
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
}
