package app

import (
	"os"
	"strings"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
)

// NewLogger настраивает logrus по секции Log и возвращает корневую запись.
func NewLogger(cfg LogConfig) (*log.Entry, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, errors.Errorf("unsupported log format %q", cfg.Format)
	}

	return logger.WithField("service", "comptoirs"), nil
}
