package uprobe

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// PrefixLogger logs every event it sees through a *slog.Logger tagged
// with a fixed prefix, then returns Unhandled so other probes still see
// the event — a passive observer, not a resolver.
type PrefixLogger struct {
	prefix string
	logger *slog.Logger
}

// NewPrefixLogger creates a probe that logs "<prefix>: <event>" at debug
// level for every event thrown through it.
func NewPrefixLogger(prefix string, logger *slog.Logger) *PrefixLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrefixLogger{prefix: prefix, logger: logger}
}

func (p *PrefixLogger) Name() string { return "prefix-logger:" + p.prefix }

func (p *PrefixLogger) Handle(e Event) Result {
	p.logger.Debug(p.prefix, "event", e.Kind.String(), "stage", e.StageID, "signature", e.Signature, "flow_def", e.FlowDef)
	return Unhandled()
}

// StdioLogger writes a structured line per event to an io.Writer
// (stderr by default), in "json" or "env" format — the same two output
// shapes and "avoid mixing with normal output, default to stderr"
// convention as the teacher's StdioHook, repointed at framework events
// instead of RTMP connection events.
type StdioLogger struct {
	format string
	output io.Writer
}

// NewStdioLogger creates a probe writing format ("json" or "env") lines
// to stderr.
func NewStdioLogger(format string) *StdioLogger {
	return &StdioLogger{format: format, output: os.Stderr}
}

// SetOutput overrides the destination (default stderr); returns the
// receiver for chaining, matching the teacher's builder style.
func (s *StdioLogger) SetOutput(w io.Writer) *StdioLogger {
	s.output = w
	return s
}

func (s *StdioLogger) Name() string { return "stdio-logger" }

func (s *StdioLogger) Handle(e Event) Result {
	var err error
	switch s.format {
	case "json":
		err = s.outputJSON(e)
	case "env":
		err = s.outputEnv(e)
	default:
		err = fmt.Errorf("stdio-logger: unsupported format %q", s.format)
	}
	if err != nil {
		return ErrorResult(err)
	}
	return Unhandled()
}

func (s *StdioLogger) outputJSON(e Event) error {
	line := struct {
		Kind      string `json:"kind"`
		Signature string `json:"signature,omitempty"`
		StageID   string `json:"stage_id,omitempty"`
		FlowDef   string `json:"flow_def,omitempty"`
	}{Kind: e.Kind.String(), Signature: e.Signature, StageID: e.StageID, FlowDef: e.FlowDef}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("stdio-logger: marshal: %w", err)
	}
	_, err = fmt.Fprintf(s.output, "PIPE_EVENT: %s\n", data)
	return err
}

func (s *StdioLogger) outputEnv(e Event) error {
	lines := []string{
		"# pipe event: " + e.Kind.String(),
		"PIPE_EVENT_KIND=" + e.Kind.String(),
	}
	if e.Signature != "" {
		lines = append(lines, "PIPE_EVENT_SIGNATURE="+e.Signature)
	}
	if e.StageID != "" {
		lines = append(lines, "PIPE_EVENT_STAGE="+e.StageID)
	}
	if e.FlowDef != "" {
		lines = append(lines, "PIPE_EVENT_FLOW_DEF="+e.FlowDef)
	}
	lines = append(lines, "")
	_, err := fmt.Fprint(s.output, strings.Join(lines, "\n"))
	return err
}
