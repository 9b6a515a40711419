package notify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	appLog "untiswidget/internal/log"
)

// Sink delivers notifications. Schedule is fire-and-forget.
type Sink interface {
	Schedule(title, body string)
}

// LogSink writes every notification as an INFO log line.
type LogSink struct{}

func (LogSink) Schedule(title, body string) {
	appLog.Info("notification", "title", title, "body", body)
}

// Notification is one line of a FileSink file.
type Notification struct {
	Time  time.Time `json:"time"`
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
}

// FileSink appends notifications as JSON lines to Path. A device-side
// agent tails the file and shows the entries.
type FileSink struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

func (f *FileSink) Schedule(title, body string) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	line, err := json.Marshal(Notification{Time: now(), Title: title, Body: body})
	if err != nil {
		appLog.Error("encode notification failed", err, "title", title)
		return
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		appLog.Error("create notification dir failed", err, "path", f.Path)
		return
	}
	fh, err := os.OpenFile(f.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		appLog.Error("open notification file failed", err, "path", f.Path)
		return
	}
	defer fh.Close()
	if _, err := fh.Write(line); err != nil {
		appLog.Error("write notification failed", err, "path", f.Path)
	}
}

// Multi fans out to several sinks.
type Multi []Sink

func (m Multi) Schedule(title, body string) {
	for _, s := range m {
		s.Schedule(title, body)
	}
}
