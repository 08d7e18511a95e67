package utils

import (
	"io"
	"os"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	"github.com/sirupsen/logrus"
)

// ServiceName is attached to every log entry.
const ServiceName = "campus-compass"

// New creates the application logger. Entries are JSON on stdout; development
// logs at debug, everything else at info unless LOG_LEVEL says otherwise.
func New(cfg *config.Config) *logrus.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{logrus.FieldKeyTime: "timestamp", logrus.FieldKeyMsg: "message"},
	})
	log.AddHook(serviceHook{env: cfg.Env})

	level := logrus.InfoLevel
	if cfg.Env == "development" {
		level = logrus.DebugLevel
	}
	if cfg.LogLevel != "" {
		parsed, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.WithField("logLevel", cfg.LogLevel).Warn("Ignoring unknown log level")
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)
	return log
}

// serviceHook stamps entries with the service and environment.
type serviceHook struct {
	env string
}

func (serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = ServiceName
	e.Data["env"] = h.env
	return nil
}
