package auraagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CoordinationLogger is the interface for coordinator logging.
type CoordinationLogger interface {
	LogIteration(iteration IterationLog) error
}

// NewCoordinationLogFilePath returns a file path under dir named after the
// session start and a cleaned up backend/model name.
func NewCoordinationLogFilePath(dir, model string) string {
	if model == "" {
		model = "degraded"
	}
	name := strings.NewReplacer(":", "_", "/", "_", " ", "_").Replace(strings.ToLower(model))
	return filepath.Join(dir, fmt.Sprintf("%d.%s.json", time.Now().Unix(), name))
}

// IterationLog represents a single model round-trip within a turn
type IterationLog struct {
	TurnID    string        `json:"turn_id"`
	Iteration int           `json:"iteration"`
	Timestamp time.Time     `json:"timestamp"`
	Language  string        `json:"language,omitempty"`
	LLMInput  string        `json:"llm_input,omitempty"`
	LLMOutput any           `json:"llm_output"`
	Retries   int           `json:"retries,omitempty"`
	ToolCalls []ToolCallLog `json:"tool_calls,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolCallLog represents a tool execution within an iteration
type ToolCallLog struct {
	Name      string         `json:"name"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	Duration  time.Duration  `json:"duration_ns"`
	Error     string         `json:"error,omitempty"`
}

// FileCoordinationLogger logs to a file, accumulating iterations and flushing at the end
type FileCoordinationLogger struct {
	iterations []IterationLog
	writer     io.Writer
}

// NewFileCoordinationLogger creates a new file-based coordination logger
func NewFileCoordinationLogger(writer io.Writer) *FileCoordinationLogger {
	return &FileCoordinationLogger{
		iterations: make([]IterationLog, 0),
		writer:     writer,
	}
}

// LogIteration logs an iteration to the buffer (does not flush immediately)
func (fcl *FileCoordinationLogger) LogIteration(iteration IterationLog) error {
	fcl.iterations = append(fcl.iterations, iteration)
	return nil
}

// Flush flushes all accumulated iterations to the writer
func (fcl *FileCoordinationLogger) Flush() error {
	if fcl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"coordination_session": map[string]any{
			"timestamp":  time.Now(),
			"turns":      countTurns(fcl.iterations),
			"iterations": fcl.iterations,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal coordination log: %w", err)
	}

	if _, err := fcl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write coordination log: %w", err)
	}

	// Clear the buffer after successful write
	fcl.iterations = fcl.iterations[:0]
	return nil
}

// NoOpCoordinationLogger is a logger that discards all log entries
type NoOpCoordinationLogger struct{}

// NewNoOpCoordinationLogger creates a new no-op coordination logger
func NewNoOpCoordinationLogger() *NoOpCoordinationLogger {
	return &NoOpCoordinationLogger{}
}

// LogIteration discards the iteration log (no-op)
func (nop *NoOpCoordinationLogger) LogIteration(iteration IterationLog) error {
	return nil
}

// StdoutCoordinationLogger logs each iteration as a JSON line (for Lambda/CloudWatch)
type StdoutCoordinationLogger struct {
	out io.Writer
}

// NewStdoutCoordinationLogger creates a coordination logger writing to os.Stdout
func NewStdoutCoordinationLogger() *StdoutCoordinationLogger {
	return &StdoutCoordinationLogger{out: os.Stdout}
}

// LogIteration writes the iteration as a single JSON line
func (l *StdoutCoordinationLogger) LogIteration(iteration IterationLog) error {
	data, err := json.Marshal(iteration)
	if err != nil {
		return err
	}
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func countTurns(iterations []IterationLog) int {
	seen := make(map[string]bool)
	for _, it := range iterations {
		seen[it.TurnID] = true
	}
	return len(seen)
}
