// Package logging builds the bot's logrus logger and the per-request entries
// derived from it.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ruznama_bot/internal/config"
)

const serviceName = "ruznama-bot"

var (
	mu   sync.Mutex
	base *logrus.Entry
)

// Fields is a shorthand alias for structured log fields.
type Fields = logrus.Fields

// Context names the subject of a log line: the Telegram user and chat an
// update came from, or the subscriber, location and prayer a reminder is for.
type Context struct {
	UserID     string
	ChatID     int64
	LocationID string
	Prayer     string
	Event      string
}

// Fields returns the non-empty identifiers of c.
func (c Context) Fields() Fields {
	out := Fields{}
	put := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}

	put("user_id", c.UserID)
	if c.ChatID != 0 {
		out["chat_id"] = c.ChatID
	}
	put("location_id", c.LocationID)
	put("prayer", c.Prayer)
	put("event", c.Event)
	return out
}

// Setup installs the process logger: JSON in production, text in
// development, tagged with the service and environment.
func Setup(cfg config.Config) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	entry := build(cfg.AppEnv, level)

	mu.Lock()
	base = entry
	mu.Unlock()

	return entry, nil
}

// Logger returns the installed logger, or a production-style default when
// Setup has not run yet.
func Logger() *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()

	if base == nil {
		base = build(config.DefaultAppEnv, logrus.InfoLevel)
	}
	return base
}

// WithContext derives an entry from parent carrying the identifiers in c.
// A nil parent falls back to Logger.
func WithContext(parent *logrus.Entry, c Context) *logrus.Entry {
	if parent == nil {
		parent = Logger()
	}

	fields := c.Fields()
	if len(fields) == 0 {
		return parent
	}
	return parent.WithFields(fields)
}

func build(appEnv string, level logrus.Level) *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(formatter(appEnv))

	return logger.WithFields(logrus.Fields{
		"service": serviceName,
		"env":     appEnv,
	})
}

func formatter(appEnv string) logrus.Formatter {
	keys := logrus.FieldMap{
		logrus.FieldKeyTime:  "ts",
		logrus.FieldKeyMsg:   "msg",
		logrus.FieldKeyLevel: "level",
	}

	if appEnv == config.EnvDevelopment {
		return &logrus.TextFormatter{
			FullTimestamp:          true,
			TimestampFormat:        time.RFC3339Nano,
			FieldMap:               keys,
			DisableLevelTruncation: true,
		}
	}

	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap:        keys,
	}
}

func reset() {
	mu.Lock()
	base = nil
	mu.Unlock()
}
