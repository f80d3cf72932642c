package particleforge

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"particleforge/codegen"
)

// Logger is the diagnostic sink every Simulation call path reports
// through: shader builds and recompiles, rebuild failures, failed
// picking and snapshot readbacks go through here rather than panicking
// or printing directly.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// GenerationLogger is implemented by loggers that can tag their output
// with the current rebuild generation, so a RebuildFailed error in a
// log stream can be correlated with the exact shader generation that
// produced it. Simulation sets this after every successful rebuild.
type GenerationLogger interface {
	SetGeneration(id string)
}

// DefaultLogger writes Info/Debug to stdout and Warn/Error to stderr,
// each line timestamped and tagged with the caller's prefix plus the
// active rebuild generation once one exists.
type DefaultLogger struct {
	mu         sync.Mutex
	debug      bool
	prefix     string
	generation string
	out        *log.Logger
	err        *log.Logger
}

// NewDefaultLogger builds a DefaultLogger. debug gates Debugf output;
// it can be toggled later with SetDebug.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

// SetGeneration tags all subsequent lines with a rebuild generation
// id; pass "" to clear.
func (l *DefaultLogger) SetGeneration(id string) {
	l.mu.Lock()
	l.generation = id
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level, format string, args ...any) string {
	l.mu.Lock()
	tag := l.prefix
	if l.generation != "" {
		if tag != "" {
			tag += " "
		}
		tag += "gen=" + l.generation
	}
	l.mu.Unlock()

	if tag != "" {
		return fmt.Sprintf("[%s] %s: %s", tag, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.prefixf("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything. Used as the
// Simulation default so callers never have to nil-check.
func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// setLoggerGeneration tags l with a rebuild generation id when the
// logger supports it. The full UUID is noise in a log line; the first
// group is enough to correlate.
func setLoggerGeneration(l Logger, id string) {
	gl, ok := l.(GenerationLogger)
	if !ok {
		return
	}
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	gl.SetGeneration(id)
}

// numberWGSL prefixes every line of a shader source with its 1-based
// line number, the form GPU compiler diagnostics reference.
func numberWGSL(src string) string {
	lines := strings.Split(src, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
	}
	return b.String()
}

// reportRebuildFailure surfaces shader-compile diagnostics alongside
// the text the driver rejected. Codegen is deterministic, so when the
// failure happened at the GPU-compile stage (codegen itself
// succeeded) re-running it recovers the exact sources; each is dumped
// line-numbered at debug level so a compiler's "line N" messages can
// be followed into the generated WGSL.
func reportRebuildFailure(l Logger, cfg codegen.Config, err error) {
	l.Errorf("shader rebuild failed, previous pipelines kept: %v", err)
	if !l.DebugEnabled() {
		return
	}

	out, cgErr := codegen.Build(cfg)
	if cgErr != nil {
		// Codegen itself rejected the configuration; there is no
		// generated text to dump.
		return
	}
	l.Debugf("rejected compute shader:\n%s", numberWGSL(out.Compute))
	l.Debugf("rejected render shader:\n%s", numberWGSL(out.Render))
}
