package attgatt

import "github.com/sirupsen/logrus"

// entryLogger adapts *logrus.Entry to logFieldLogger.
type entryLogger struct {
	entry *logrus.Entry
}

func newEntryLogger(entry *logrus.Entry) logFieldLogger {
	return &entryLogger{entry: entry}
}

func (l *entryLogger) WithField(key string, value interface{}) logFieldLogger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}

func (l *entryLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *entryLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *entryLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *entryLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
