package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	LogLevelError   LogLevel = 0
	LogLevelWarning LogLevel = 1
	LogLevelInfo    LogLevel = 2
	LogLevelDebug   LogLevel = 3
)

// Fields are structured key/values attached to a log line.
type Fields = logrus.Fields

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	l.SetLevel(logrus.ErrorLevel) // the default
	return l
}

func SetLogLevel(newLevel int) {
	std.SetLevel(toLogrus(LogLevel(newLevel)))
}

// ParseLevel maps a config string ("error", "warn", "info", "debug") to a
// LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarning, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelError, fmt.Errorf("unknown log level %q", s)
}

func toLogrus(level LogLevel) logrus.Level {
	switch {
	case level <= LogLevelError:
		return logrus.ErrorLevel
	case level == LogLevelWarning:
		return logrus.WarnLevel
	case level == LogLevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// SetLogFile mirrors every entry as JSON into a daily rotated file. path is
// kept as a symlink to the current file; rotated files are dropped after a
// week.
func SetLogFile(path string) error {
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return err
	}
	std.AddHook(lfshook.NewHook(w, &logrus.JSONFormatter{}))
	return nil
}

// SetOutput replaces the console writer.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return std.WithError(err)
}

func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}

func Fatal(args ...interface{}) {
	std.Fatal(args...)
}

func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Successf logs at info level, tagged for events like a miner getting
// authorized or a share being accepted.
func Successf(format string, args ...interface{}) {
	std.WithField("event", "success").Infof(format, args...)
}

// Noticef logs at info level, tagged for noteworthy events like new work
// being pushed to miners.
func Noticef(format string, args ...interface{}) {
	std.WithField("event", "notice").Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

func Debug(args ...interface{}) {
	std.Debug(args...)
}

func Info(args ...interface{}) {
	std.Info(args...)
}

func Warn(args ...interface{}) {
	std.Warn(args...)
}

func Error(args ...interface{}) {
	std.Error(args...)
}
