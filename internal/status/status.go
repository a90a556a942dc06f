package status

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Severity classifies a status report.
type Severity string

// Severity levels accepted by the sink.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is one report delivered to the status sink.
type Message struct {
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

// Handler receives each reported message. Handlers are invoked
// synchronously on the reporting goroutine and must not block.
type Handler func(Message)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const sessionFilePrefix = "session_"

// Manager is the single process-wide status sink.
//
// Capability APIs and owning modules report through it instead of
// surfacing faults to their callers; presentation layers subscribe
// to render messages however they like.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	mu       sync.RWMutex
	handlers []Handler
	last     *Message

	fileMu sync.Mutex
	file   *os.File

	logger Logger
}

// Options configures a Manager.
type Options struct {
	// SessionLogDir, when non-empty, receives one timestamped log file
	// per run. Created if missing.
	SessionLogDir string

	// RetentionDays prunes session logs older than this on startup.
	// Zero disables pruning.
	RetentionDays int

	// Logger mirrors every report to structured logging. Optional.
	Logger Logger
}

// New creates a Manager, opening the session log file and pruning
// expired logs when a log directory is configured.
func New(opts Options) (*Manager, error) {
	m := &Manager{logger: opts.Logger}
	if m.logger == nil {
		m.logger = noopLogger{}
	}

	if opts.SessionLogDir != "" {
		if err := os.MkdirAll(opts.SessionLogDir, 0750); err != nil {
			return nil, fmt.Errorf("creating session log dir: %w", err)
		}

		if opts.RetentionDays > 0 {
			m.pruneOldLogs(opts.SessionLogDir, opts.RetentionDays)
		}

		name := sessionFilePrefix + time.Now().Format("2006-01-02_15-04-05") + ".log"
		f, err := os.OpenFile(filepath.Join(opts.SessionLogDir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, fmt.Errorf("opening session log: %w", err)
		}
		m.file = f
	}

	return m, nil
}

// Subscribe registers a handler for all subsequent reports.
func (m *Manager) Subscribe(h Handler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// Report delivers a message to every subscriber, the session log and
// the structured logger.
func (m *Manager) Report(severity Severity, text string) {
	msg := Message{
		Severity: severity,
		Text:     text,
		Time:     time.Now(),
	}

	m.mu.Lock()
	m.last = &msg
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}

	m.appendToSession(msg)

	switch severity {
	case SeverityWarning:
		m.logger.Warn(text)
	case SeverityError:
		m.logger.Error(text)
	default:
		m.logger.Info(text)
	}
}

// Info reports an informational message.
func (m *Manager) Info(format string, args ...any) {
	m.Report(SeverityInfo, fmt.Sprintf(format, args...))
}

// Warning reports a warning.
func (m *Manager) Warning(format string, args ...any) {
	m.Report(SeverityWarning, fmt.Sprintf(format, args...))
}

// Error reports an error.
func (m *Manager) Error(format string, args ...any) {
	m.Report(SeverityError, fmt.Sprintf(format, args...))
}

// Last returns the most recent message, if any has been reported.
func (m *Manager) Last() (Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Message{}, false
	}
	return *m.last, true
}

// Close flushes and closes the session log file.
func (m *Manager) Close() error {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// appendToSession writes one line to the session log file.
func (m *Manager) appendToSession(msg Message) {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	if m.file == nil {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n",
		msg.Time.Format("2006-01-02 15:04:05"),
		strings.ToUpper(string(msg.Severity)),
		msg.Text,
	)
	// Write errors are swallowed; the sink must never fail a report.
	_, _ = m.file.WriteString(line)
}

// pruneOldLogs removes session logs older than the retention window.
func (m *Manager) pruneOldLogs(dir string, retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), sessionFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				m.logger.Info("pruned session log", "file", entry.Name())
			}
		}
	}
}
