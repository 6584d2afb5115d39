package observability

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"
)

type Logger struct {
	base  *log.Logger
	debug bool
}

// NewLogger writes one JSON object per line to stdout. Debug events are
// dropped unless LOG_LEVEL=debug.
func NewLogger() *Logger {
	return &Logger{
		base:  log.New(os.Stdout, "", 0),
		debug: strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "debug"),
	}
}

func (l *Logger) Debug(message string, fields map[string]any) {
	if !l.debug {
		return
	}
	l.write("debug", message, fields)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.write("info", message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.write("error", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]any) {
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
	}
	for k, v := range fields {
		payload[k] = v
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		l.base.Println(`{"level":"error","message":"failed to encode log"}`)
		return
	}

	l.base.Println(string(encoded))
}
