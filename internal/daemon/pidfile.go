package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotRunning is returned when no live process owns the PID file.
	ErrNotRunning = errors.New("review service is not running")
	// ErrAlreadyRunning is returned when a live process already owns the PID file.
	ErrAlreadyRunning = errors.New("review service is already running")
)

// PIDFile tracks the background review service process.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write writes the current process's PID to the file.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID writes the given PID to the file, creating its directory.
func (p *PIDFile) WritePID(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Acquire records pid as the service owner. It fails with ErrAlreadyRunning
// when another live process holds the file; a stale file is replaced.
func (p *PIDFile) Acquire(pid int) error {
	if existing, running := p.IsRunning(); running && existing != pid {
		return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, existing)
	}
	return p.WritePID(pid)
}

// Release removes the file if it still names pid.
func (p *PIDFile) Release(pid int) error {
	existing, err := p.Read()
	if err != nil || existing != pid {
		return nil
	}
	return p.Remove()
}

// Stop asks the recorded process to terminate and waits for it to exit,
// polling every interval until ctx is done. The PID file is removed once
// the process is gone.
func (p *PIDFile) Stop(ctx context.Context, interval time.Duration) (int, error) {
	pid, running := p.IsRunning()
	if !running {
		_ = p.Remove()
		return 0, ErrNotRunning
	}
	if err := terminate(pid); err != nil {
		return pid, fmt.Errorf("signal PID %d: %w", pid, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !processAlive(pid) {
			return pid, p.Remove()
		}
		select {
		case <-ctx.Done():
			return pid, fmt.Errorf("PID %d did not exit: %w", pid, ctx.Err())
		case <-ticker.C:
		}
	}
}

// IsRunning checks if the PID file exists and the process is alive.
// Returns the PID and whether the process is running.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}
