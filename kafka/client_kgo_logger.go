package kafka

import (
	"github.com/hugolhafner/krimson/logger"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ kgo.Logger = (*kgoLogger)(nil)

// kgoLogger bridges franz-go's own logging interface into krimson's
// logger.Logger and, when configured, the client's LogHook — so a consumer
// adapter can re-surface these lines as ConsumerLog interceptor events.
type kgoLogger struct {
	c *KgoClient
}

func newKgoLogger(c *KgoClient) *kgoLogger {
	return &kgoLogger{c: c}
}

func (kl *kgoLogger) Level() kgo.LogLevel {
	return mapToKgoLevel(kl.c.logger.Level())
}

func (kl *kgoLogger) Log(level kgo.LogLevel, msg string, args ...interface{}) {
	ourLevel := mapFromKgoLevel(level)
	kl.c.logger.Log(ourLevel, msg, args...)

	if hook := kl.c.logHook(); hook != nil {
		hook(ourLevel.String(), msg)
	}
}

func mapToKgoLevel(level logger.LogLevel) kgo.LogLevel {
	switch level {
	case logger.DebugLevel:
		return kgo.LogLevelDebug
	case logger.InfoLevel:
		return kgo.LogLevelInfo
	case logger.WarnLevel:
		return kgo.LogLevelWarn
	case logger.ErrorLevel:
		return kgo.LogLevelError
	default:
		return kgo.LogLevelWarn
	}
}

func mapFromKgoLevel(level kgo.LogLevel) logger.LogLevel {
	switch level {
	case kgo.LogLevelDebug:
		return logger.DebugLevel
	case kgo.LogLevelInfo:
		return logger.InfoLevel
	case kgo.LogLevelWarn:
		return logger.WarnLevel
	case kgo.LogLevelError:
		return logger.ErrorLevel
	default:
		return logger.WarnLevel
	}
}
