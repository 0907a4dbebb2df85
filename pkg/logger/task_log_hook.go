// Package logger provides structured logging capabilities for the application.
package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/voicebot/codexreview/internal/model"
)

const (
	// hookBufferSize is the number of entries buffered before a flush
	hookBufferSize = 100
	// hookFlushInterval is the period of background flushes
	hookFlushInterval = 5 * time.Second
)

// TaskLogWriter persists captured task log entries.
type TaskLogWriter interface {
	Write(logs []model.TaskLog) error
}

// TaskLogHook captures entries carrying a task_id field and writes them in batches.
type TaskLogHook struct {
	writer TaskLogWriter

	mu     sync.Mutex
	buffer []model.TaskLog

	// writeMu keeps batches in order
	writeMu sync.Mutex

	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	flushTick time.Duration
}

// NewTaskLogHook creates a hook and starts its background flusher.
func NewTaskLogHook(writer TaskLogWriter) *TaskLogHook {
	return newTaskLogHook(writer, hookFlushInterval)
}

func newTaskLogHook(writer TaskLogWriter, interval time.Duration) *TaskLogHook {
	h := &TaskLogHook{
		writer:    writer,
		buffer:    make([]model.TaskLog, 0, hookBufferSize),
		stopCh:    make(chan struct{}),
		flushTick: interval,
	}
	h.wg.Add(1)
	go h.backgroundFlush()
	return h
}

// WrapCore wraps a zapcore.Core so task entries are captured.
func (h *TaskLogHook) WrapCore(core zapcore.Core) zapcore.Core {
	return &taskLogCore{Core: core, hook: h}
}

type taskLogCore struct {
	zapcore.Core
	hook   *TaskLogHook
	fields []zapcore.Field
}

func (c *taskLogCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &taskLogCore{Core: c.Core.With(fields), hook: c.hook, fields: merged}
}

func (c *taskLogCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *taskLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if err := c.Core.Write(entry, fields); err != nil {
		return err
	}

	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	taskID, jobID := extractTaskInfo(all)
	if taskID == "" {
		return nil
	}

	c.hook.add(model.TaskLog{
		CreatedAt: entry.Time,
		TaskID:    taskID,
		JobID:     jobID,
		Level:     convertLevel(entry.Level),
		Logger:    entry.LoggerName,
		Message:   entry.Message,
		Caller:    entry.Caller.TrimmedPath(),
		Fields:    serializeFields(all),
	})
	return nil
}

func (c *taskLogCore) Sync() error {
	c.hook.Flush()
	return c.Core.Sync()
}

func (h *TaskLogHook) add(entry model.TaskLog) {
	h.mu.Lock()
	h.buffer = append(h.buffer, entry)
	full := len(h.buffer) >= hookBufferSize
	h.mu.Unlock()

	if full {
		go h.Flush()
	}
}

// Flush writes all buffered entries.
func (h *TaskLogHook) Flush() {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.buffer
	h.buffer = make([]model.TaskLog, 0, hookBufferSize)
	h.mu.Unlock()

	if err := h.writer.Write(batch); err != nil {
		// stderr, not the logger: logging here would recurse into the hook
		fmt.Fprintf(os.Stderr, "Failed to write task logs: %v\n", err)
	}
}

func (h *TaskLogHook) backgroundFlush() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.flushTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Flush()
		case <-h.stopCh:
			h.Flush()
			return
		}
	}
}

// Close stops the background flusher and flushes remaining entries.
func (h *TaskLogHook) Close() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}

func extractTaskInfo(fields []zapcore.Field) (taskID, jobID string) {
	for _, f := range fields {
		if f.Type != zapcore.StringType {
			continue
		}
		switch f.Key {
		case FieldTaskID:
			taskID = f.String
		case FieldJobID:
			jobID = f.String
		}
	}
	return taskID, jobID
}

func convertLevel(level zapcore.Level) model.LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return model.LogLevelDebug
	case zapcore.InfoLevel:
		return model.LogLevelInfo
	case zapcore.WarnLevel:
		return model.LogLevelWarn
	case zapcore.ErrorLevel:
		return model.LogLevelError
	default:
		return model.LogLevelFatal
	}
}

// serializeFields renders fields through zap's map encoder, dropping the
// identification keys already stored in their own columns.
func serializeFields(fields []zapcore.Field) model.JSONMap {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == FieldTaskID || f.Key == FieldJobID {
			continue
		}
		f.AddTo(enc)
	}
	data := make(model.JSONMap, len(enc.Fields))
	for k, v := range enc.Fields {
		data[k] = v
	}
	return data
}
