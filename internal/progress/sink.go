// Package progress carries human-readable status notifications out of the snapshot pipeline.
package progress

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Sink receives ordered status messages. Implementations must tolerate calls
// from batch completion callbacks.
type Sink interface {
	Report(message string)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(message string)

// Report invokes the underlying function.
func (sinkFunc SinkFunc) Report(message string) {
	sinkFunc(message)
}

// Discard drops every message.
var Discard Sink = SinkFunc(func(string) {})

// Recorder is an append-only Sink that keeps messages in arrival order.
type Recorder struct {
	mutex    sync.Mutex
	messages []string
}

// Report appends the message.
func (recorder *Recorder) Report(message string) {
	recorder.mutex.Lock()
	recorder.messages = append(recorder.messages, message)
	recorder.mutex.Unlock()
}

// Messages returns a copy of the recorded messages.
func (recorder *Recorder) Messages() []string {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return append([]string(nil), recorder.messages...)
}

// LoggerSink forwards messages to a zap logger at info level.
type LoggerSink struct {
	logger *zap.Logger
}

// NewLoggerSink returns a Sink backed by logger. A nil logger discards messages.
func NewLoggerSink(logger *zap.Logger) LoggerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return LoggerSink{logger: logger}
}

// Report logs the trimmed message.
func (sink LoggerSink) Report(message string) {
	trimmed := strings.TrimRight(message, "\n")
	if trimmed == "" {
		return
	}
	sink.logger.Info(trimmed)
}

// Fanout delivers each message to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	active := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	return SinkFunc(func(message string) {
		for _, sink := range active {
			sink.Report(message)
		}
	})
}

// OrDiscard returns sink, or Discard when sink is nil.
func OrDiscard(sink Sink) Sink {
	if sink == nil {
		return Discard
	}
	return sink
}
