// Package logging provides global logging functions for fukura.
// Use dot import to access L_info, L_error, etc. directly.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Log levels.
const (
	LevelFatal = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	logger *log.Logger
	once   sync.Once

	// currentLevel gates trace filtering, since charmbracelet/log has no trace level.
	currentLevel int32 = LevelInfo

	hookMu   sync.RWMutex
	hook     func(level, msg string)
	hookOnly int32 // when 1, suppress the stderr writer (used by the TUI)
)

// Config holds logging configuration.
type Config struct {
	Level      int
	TimeFormat string
	ShowCaller bool
	Output     io.Writer // defaults to os.Stderr; the daemon redirects this to daemon.log
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		TimeFormat: "15:04:05",
		ShowCaller: true,
		Output:     os.Stderr,
	}
}

// Init initializes the global logger. Safe to call multiple times; only the
// first call takes effect.
func Init(cfg *Config) {
	once.Do(func() {
		if cfg == nil {
			cfg = DefaultConfig()
		}
		if cfg.Output == nil {
			cfg.Output = os.Stderr
		}

		logger = log.NewWithOptions(cfg.Output, log.Options{
			ReportTimestamp: true,
			TimeFormat:      cfg.TimeFormat,
			ReportCaller:    cfg.ShowCaller,
			CallerOffset:    2,
		})

		applyLevel(cfg.Level)
	})
}

func applyLevel(level int) {
	atomic.StoreInt32(&currentLevel, int32(level))
	switch level {
	case LevelTrace, LevelDebug:
		logger.SetLevel(log.DebugLevel)
	case LevelInfo:
		logger.SetLevel(log.InfoLevel)
	case LevelWarn:
		logger.SetLevel(log.WarnLevel)
	default:
		logger.SetLevel(log.ErrorLevel)
	}
}

func ensureInit() {
	if logger == nil {
		Init(nil)
	}
}

// hasFmtVerb reports whether s looks like a printf format string.
func hasFmtVerb(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] != '%' {
			continue
		}
		if next := s[i+1]; next != '%' && strings.ContainsRune("vsdtfgeopqxXbcUT+#", rune(next)) {
			return true
		}
	}
	return false
}

// split turns the flexible (msg, args...) call shape into a final message
// plus structured key/value pairs, dispatching to printf style when msg
// itself contains format verbs.
func split(msg string, args []interface{}) (string, []interface{}) {
	if len(args) == 0 {
		return msg, nil
	}
	if hasFmtVerb(msg) {
		return fmt.Sprintf(msg, args...), nil
	}
	return msg, args
}

func notifyHook(level, finalMsg string, keyvals []interface{}) {
	hookMu.RLock()
	h := hook
	hookMu.RUnlock()
	if h == nil {
		return
	}
	display := finalMsg
	for i := 0; i+1 < len(keyvals); i += 2 {
		display += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	h(level, display)
}

func logAt(level log.Level, levelName, msg string, args []interface{}) {
	ensureInit()
	finalMsg, keyvals := split(msg, args)
	notifyHook(levelName, finalMsg, keyvals)
	if atomic.LoadInt32(&hookOnly) == 1 {
		return
	}
	switch level {
	case log.DebugLevel:
		logger.Debug(finalMsg, keyvals...)
	case log.InfoLevel:
		logger.Info(finalMsg, keyvals...)
	case log.WarnLevel:
		logger.Warn(finalMsg, keyvals...)
	case log.ErrorLevel:
		logger.Error(finalMsg, keyvals...)
	case log.FatalLevel:
		logger.Fatal(finalMsg, keyvals...)
	}
}

// L_trace logs at trace level; only emitted when the level is set to LevelTrace.
func L_trace(msg string, args ...interface{}) {
	if atomic.LoadInt32(&currentLevel) < int32(LevelTrace) {
		return
	}
	ensureInit()
	finalMsg, keyvals := split(msg, args)
	notifyHook("TRACE", finalMsg, keyvals)
	if atomic.LoadInt32(&hookOnly) == 1 {
		return
	}
	now := time.Now().Format("2006/01/02 15:04:05")
	var sb strings.Builder
	sb.WriteString(now)
	sb.WriteString(" TRAC ")
	sb.WriteString(finalMsg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", keyvals[i], keyvals[i+1])
	}
	sb.WriteByte('\n')
	fmt.Fprint(os.Stderr, sb.String())
}

func L_debug(msg string, args ...interface{}) { logAt(log.DebugLevel, "DEBUG", msg, args) }
func L_info(msg string, args ...interface{})  { logAt(log.InfoLevel, "INFO", msg, args) }
func L_warn(msg string, args ...interface{})  { logAt(log.WarnLevel, "WARN", msg, args) }
func L_error(msg string, args ...interface{}) { logAt(log.ErrorLevel, "ERROR", msg, args) }
func L_fatal(msg string, args ...interface{}) { logAt(log.FatalLevel, "FATAL", msg, args) }

// L_elapsed logs msg with an "elapsed" key measuring time.Since(start).
func L_elapsed(start time.Time, msg string, args ...interface{}) {
	args = append(args, "elapsed", time.Since(start).String())
	logAt(log.InfoLevel, "INFO", msg, args)
}

// SetHook installs a function that receives every log line, in addition to
// the normal writer. Pass nil to clear it. Used by the TUI to mirror daemon
// logs into its own log pane.
func SetHook(fn func(level, msg string)) {
	hookMu.Lock()
	hook = fn
	hookMu.Unlock()
}

// SetHookExclusive installs a hook and stops writing to the normal output
// writer, so the TUI can own the terminal without interleaved log lines.
func SetHookExclusive(fn func(level, msg string)) {
	SetHook(fn)
	ensureInit()
	if fn != nil {
		atomic.StoreInt32(&hookOnly, 1)
		logger.SetOutput(io.Discard)
	} else {
		atomic.StoreInt32(&hookOnly, 0)
		logger.SetOutput(os.Stderr)
	}
}

// SetLevel changes the log level at runtime.
func SetLevel(level int) {
	ensureInit()
	applyLevel(level)
}

// GetLevel returns the current log level.
func GetLevel() int {
	return int(atomic.LoadInt32(&currentLevel))
}

// SetOutput redirects where log lines are written, e.g. to daemon.log.
func SetOutput(w io.Writer) {
	ensureInit()
	logger.SetOutput(w)
}
