package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrNotRunning is returned by Running when no live daemon owns the file
var ErrNotRunning = errors.New("daemon is not running")

// PIDFile enforces a single simulation daemon per host
type PIDFile struct {
	path string
}

// New creates a new PIDFile manager
func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the file location
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire writes the current PID, replacing stale or corrupt files.
// It fails when another live process already holds the file.
func (p *PIDFile) Acquire() error {
	pid, err := p.Read()
	switch {
	case err == nil && isProcessRunning(pid):
		return fmt.Errorf("daemon is already running (PID %d)", pid)
	case err == nil, errors.Is(err, errCorrupt):
		_ = os.Remove(p.path)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to read existing PID file: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create PID directory: %w", err)
		}
	}

	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(p.path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the PID file
func (p *PIDFile) Release() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

var errCorrupt = errors.New("corrupt PID file")

// Read returns the PID stored in the file
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, errCorrupt
	}
	return pid, nil
}

// Running returns the PID of the live daemon, or ErrNotRunning
func (p *PIDFile) Running() (int, error) {
	pid, err := p.Read()
	if err != nil || !isProcessRunning(pid) {
		return 0, ErrNotRunning
	}
	return pid, nil
}

// isProcessRunning probes the process with signal 0
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// exists but owned by someone else
		return true
	default:
		return false
	}
}
