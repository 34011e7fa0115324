package envconfig

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type appNameHook struct {
	appName string
}

func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// InitLogger returns a stdout logger with the level taken from LOG_LEVEL
// (or GOVERIFY_LOG_LEVEL) and every message prefixed with appName.
func InitLogger(appName string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	levelStr := strings.ToLower(firstNonEmpty(os.Getenv(Prefix+"LOG_LEVEL"), os.Getenv("LOG_LEVEL")))
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to INFO", levelStr)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if appName != "" {
		logger.AddHook(&appNameHook{appName: appName})
	}
	return logger
}
