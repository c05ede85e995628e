package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Logger 带组件名的日志记录器
type Logger struct {
	name  string
	entry *logrus.Entry
}

func NewLogger(name string) *Logger {
	return &Logger{
		name:  name,
		entry: base.WithField("component", name),
	}
}

// SetLevel 设置全局日志级别 (debug, info, warn, error)
func SetLevel(level string) error {
	if os.Getenv("DEBUG") == "true" {
		base.SetLevel(logrus.DebugLevel)
		return nil
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("未知日志级别 %q (可选 debug, info, warn, error)", level)
	}
	base.SetLevel(lvl)
	return nil
}

// SetOutput 重定向日志输出，测试中用于静默
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// With 返回附加字段的子记录器
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{name: l.name, entry: l.entry.WithField(key, value)}
}

// Entry 暴露底层logrus条目，供中间件等需要结构化字段的场景使用
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}
