// Package telemetry writes one JSON object per line for CloudWatch ingestion.
package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Service is stamped on every log line.
const Service = "invoice-extractor"

var sink = struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}{out: os.Stdout, now: time.Now}

// SetOutput redirects log lines to w and returns a func restoring the
// previous writer.
func SetOutput(w io.Writer) (restore func()) {
	sink.mu.Lock()
	prev := sink.out
	sink.out = w
	sink.mu.Unlock()
	return func() {
		sink.mu.Lock()
		sink.out = prev
		sink.mu.Unlock()
	}
}

func Info(msg string, fields map[string]any) { write("info", msg, fields) }
func Warn(msg string, fields map[string]any) { write("warn", msg, fields) }
func Error(msg string, fields map[string]any) { write("error", msg, fields) }

func write(level, msg string, fields map[string]any) {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	entry := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	ts := sink.now().UTC().Format(time.RFC3339Nano)
	entry["ts"], entry["level"], entry["msg"], entry["service"] = ts, level, msg, Service

	line, err := json.Marshal(entry)
	if err != nil {
		line, _ = json.Marshal(map[string]any{
			"ts": ts, "level": "error", "msg": "logger marshal failed",
			"service": Service, "err": err.Error(), "dropped_msg": msg,
		})
	}
	_, _ = sink.out.Write(append(line, '\n'))
}
