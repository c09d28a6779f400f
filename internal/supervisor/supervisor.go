// Package supervisor owns the single child proxy process: it locates the
// bundled entry script, spawns it, streams its output, reaps it, and
// terminates it on request.
package supervisor

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultCommand runs the bundled proxy entry script.
const DefaultCommand = "node"

var ErrNoInstallDir = errors.New("supervisor: install directory unavailable")

// Config locates the proxy script and certificate directory. Empty fields
// resolve against the running application's install directory.
type Config struct {
	Command    string
	ScriptPath string
	CertDir    string
	Logger     zerolog.Logger
}

// StartResult reports one spawn attempt. Spawned is false when the entry
// script is absent and the attempt was skipped as a soft no-op.
type StartResult struct {
	Spawned bool `json:"spawned"`
	PID     int  `json:"pid,omitempty"`
}

// Supervisor tracks at most one live child process.
type Supervisor struct {
	cfg Config

	mu  sync.Mutex
	cmd *exec.Cmd
}

// InstallDir returns the directory of the running executable.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(exe)
	if dir == "" {
		return "", ErrNoInstallDir
	}
	return dir, nil
}

// ScriptPath resolves the bundled proxy entry script under installDir.
func ScriptPath(installDir string) string {
	return filepath.Join(installDir, "resources", "proxy", "local-proxy.js")
}

// CertDir resolves the bundled certificate directory under installDir.
func CertDir(installDir string) string {
	return filepath.Join(installDir, "resources", "certs")
}

// New builds a supervisor, resolving unset paths against the install
// directory. Resolution failure is deferred to Start, which treats a missing
// script as a skip.
func New(cfg Config) *Supervisor {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.ScriptPath == "" || cfg.CertDir == "" {
		if dir, err := InstallDir(); err == nil {
			if cfg.ScriptPath == "" {
				cfg.ScriptPath = ScriptPath(dir)
			}
			if cfg.CertDir == "" {
				cfg.CertDir = CertDir(dir)
			}
		}
	}
	return &Supervisor{cfg: cfg}
}

// Start launches the proxy child with the given gateway URL, terminating any
// previous child first so a repeated start can never leak a process. A
// missing entry script is a soft no-op; a failed spawn of an existing script
// is an error. The gateway URL is passed through unvalidated; rejecting a
// malformed URL is the child's job.
func (s *Supervisor) Start(gatewayURL string) (StartResult, error) {
	s.Stop()

	if s.cfg.ScriptPath == "" {
		s.cfg.Logger.Warn().Msg("proxy script path unresolved, skipping spawn")
		return StartResult{}, nil
	}
	if _, err := os.Stat(s.cfg.ScriptPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.cfg.Logger.Warn().
				Str("script", s.cfg.ScriptPath).
				Msg("proxy script absent, skipping spawn")
			return StartResult{}, nil
		}
		return StartResult{}, err
	}

	cmd := exec.Command(
		s.cfg.Command,
		s.cfg.ScriptPath,
		"--gateway", gatewayURL,
		"--cert-dir", s.cfg.CertDir,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return StartResult{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return StartResult{}, err
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return StartResult{}, err
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	pid := cmd.Process.Pid
	s.cfg.Logger.Info().
		Int("pid", pid).
		Str("gateway", gatewayURL).
		Msg("proxy child started")

	go s.stream(stdout, pid, "stdout")
	go s.stream(stderr, pid, "stderr")
	go s.reap(cmd)

	return StartResult{Spawned: true, PID: pid}, nil
}

// Stop forcefully terminates the live child, if any. Termination failure is
// swallowed: an already-dead child satisfies the desired end state.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		s.cfg.Logger.Debug().
			Int("pid", cmd.Process.Pid).
			Err(err).
			Msg("proxy child kill ignored")
		return
	}
	s.cfg.Logger.Info().Int("pid", cmd.Process.Pid).Msg("proxy child terminated")
}

// Alive reports whether a spawned child is still tracked. The reaper clears
// the handle as soon as the child exits, so this doubles as a non-blocking
// liveness probe.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

func (s *Supervisor) stream(r io.ReadCloser, pid int, source string) {
	defer r.Close()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		event := s.cfg.Logger.Info()
		if source == "stderr" {
			event = s.cfg.Logger.Warn()
		}
		event.Int("pid", pid).Str("source", source).Msg(scanner.Text())
	}
}

// reap waits for the child and drops the handle when it exits on its own.
// A handle already replaced or cleared by Stop is left alone.
func (s *Supervisor) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()

	event := s.cfg.Logger.Info()
	if err != nil {
		event = s.cfg.Logger.Debug().Err(err)
	}
	event.Int("pid", cmd.Process.Pid).Msg("proxy child exited")
}
