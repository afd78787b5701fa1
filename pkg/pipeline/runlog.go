package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunLog is the append-only log sink scoped to one experiment directory.
// Every line carries a UTC timestamp and is echoed to the console. It is
// only ever written by the single orchestrating goroutine.
type RunLog struct {
	file *os.File

	// Console receives an echo of every line; defaults to stdout.
	Console io.Writer
}

// OpenRunLog opens (appending) or creates the log file at path.
func OpenRunLog(path string) (*RunLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open run log %s: %w", path, err)
	}
	return &RunLog{file: f, Console: os.Stdout}, nil
}

// Printf appends one timestamped line to the log and echoes it.
func (l *RunLog) Printf(format string, args ...interface{}) {
	ts := time.Now().UTC().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s UTC] %s", ts, fmt.Sprintf(format, args...))
	if l.Console != nil {
		fmt.Fprintln(l.Console, line)
	}
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

// Close flushes and closes the underlying file.
func (l *RunLog) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
