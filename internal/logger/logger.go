package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader is read from incoming requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

type Logger struct {
	*logrus.Entry
}

var (
	output      io.Writer = os.Stdout
	level       string
	environment string
)

// SetOutput redirects every logger created afterwards. Tests use it to keep
// output quiet.
func SetOutput(w io.Writer) {
	output = w
}

// Configure sets the level and environment every later logger uses instead
// of LOG_LEVEL and ENVIRONMENT. Empty values keep reading the environment.
func Configure(logLevel, env string) {
	level, environment = logLevel, env
}

func New() *Logger {
	base := logrus.New()

	// Local env = pretty console; others = JSON
	env := environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" || env == "local" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			ForceColors:     output == os.Stdout,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	base.SetOutput(output)
	lvl := level
	if lvl == "" {
		lvl = os.Getenv("LOG_LEVEL")
	}
	base.SetLevel(parseLevel(lvl))

	return &Logger{Entry: logrus.NewEntry(base)}
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// RequestID returns the caller's request id, or a fresh one.
func RequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequestIDHeader)); id != "" {
		return id
	}
	return uuid.New().String()
}

// WithRequest attaches request metadata and returns an entry
func (l *Logger) WithRequest(r *http.Request) *Logger {
	return &Logger{Entry: l.WithFields(logrus.Fields{
		"req_id":     RequestID(r),
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})}
}

// WithSession tags the entry with the interactive session id.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{Entry: l.Entry.WithField("session_id", id)}
}

// WithComponent is shorthand for the "component" field every package sets.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", name)}
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
