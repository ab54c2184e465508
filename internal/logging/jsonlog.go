package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type entry struct {
	Level   string         `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Logger is a JSON line logger. Verbose gates debug output; it is carried
// on the value so verbosity is injected configuration, not process state.
// Logs go to stderr so stdout stays free for record output.
type Logger struct {
	Verbose bool
	Out     io.Writer
}

func New(verbose bool) Logger {
	return Logger{Verbose: verbose, Out: os.Stderr}
}

func (l Logger) log(level, msg string, fields map[string]any) {
	out := l.Out
	if out == nil {
		out = os.Stderr
	}
	e := entry{Level: level, Time: time.Now().UTC().Format(time.RFC3339Nano), Message: msg, Fields: fields}
	b, _ := json.Marshal(e)
	fmt.Fprintln(out, string(b))
}

func (l Logger) Info(msg string, fields map[string]any)  { l.log("info", msg, fields) }
func (l Logger) Error(msg string, fields map[string]any) { l.log("error", msg, fields) }

// Debug logs only when the logger is verbose.
func (l Logger) Debug(msg string, fields map[string]any) {
	if l.Verbose {
		l.log("debug", msg, fields)
	}
}
