package helpers

import (
	"strings"
	"sync"
)

// LogEntry is one captured log line
type LogEntry struct {
	Level    string
	Message  string
	Metadata map[string]interface{}
}

// CaptureLogger records log calls for assertions
type CaptureLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{}
}

func (l *CaptureLogger) Log(level, message string, metadata map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Message: message, Metadata: metadata})
}

// Count returns how many entries at level contain substr in their message
func (l *CaptureLogger) Count(level, substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if (level == "" || e.Level == level) && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

// Has reports whether any entry at level contains substr
func (l *CaptureLogger) Has(level, substr string) bool {
	return l.Count(level, substr) > 0
}
