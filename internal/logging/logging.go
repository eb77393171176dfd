package logging

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// LogConfig describes where and how fragdump logs. An empty Path logs to
// stderr; otherwise the file is rotated every Rotation and kept MaxAgeDays.
type LogConfig struct {
	Level        string        `yaml:"level"`
	Format       string        `yaml:"format"`
	Path         string        `yaml:"path"`
	Rotation     time.Duration `yaml:"rotation"`
	MaxAgeDays   int           `yaml:"maxAgeDays"`
	ReportCaller bool          `yaml:"reportCaller"`
}

// NewLogger builds a logrus logger from the configuration.
func (lc *LogConfig) NewLogger() (*logrus.Logger, error) {
	var out io.Writer
	if lc.Path == "" {
		out = os.Stderr
	} else {
		logWriter, err := rotatelogs.New(
			lc.Path+"_%Y%m%d",
			rotatelogs.WithLinkName(lc.Path),
			rotatelogs.WithRotationTime(lc.Rotation),
			rotatelogs.WithMaxAge(time.Duration(lc.MaxAgeDays)*24*time.Hour),
		)
		if err != nil {
			return nil, err
		}

		out = logWriter
	}

	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(lc.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		fallthrough
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	if level, err := logrus.ParseLevel(lc.Level); err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	if lc.ReportCaller {
		logger.SetReportCaller(true)
	}

	return logger, nil
}
