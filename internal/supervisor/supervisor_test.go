package supervisor

import (
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/selfserve/proxyctl/internal/testutil/testlog"
)

func shellSupervisor(t *testing.T, script string) *Supervisor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-backed child processes are not portable to windows")
	}
	path := filepath.Join(t.TempDir(), "local-proxy.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return New(Config{
		Command:    "/bin/sh",
		ScriptPath: path,
		CertDir:    t.TempDir(),
		Logger:     zerolog.Nop(),
	})
}

func processExists(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

func waitForExit(t *testing.T, s *Supervisor) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Alive() {
		if time.Now().After(deadline) {
			t.Fatalf("child still tracked after deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartMissingScriptIsSoftSkip(t *testing.T) {
	testlog.Start(t)
	s := New(Config{
		ScriptPath: filepath.Join(t.TempDir(), "absent.js"),
		CertDir:    t.TempDir(),
		Logger:     zerolog.Nop(),
	})

	res, err := s.Start("https://gw.example")
	if err != nil {
		t.Fatalf("missing script must not error: %v", err)
	}
	if res.Spawned {
		t.Fatalf("missing script must not report a spawn")
	}
	if s.Alive() {
		t.Fatalf("no child should be tracked")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	testlog.Start(t)
	s := shellSupervisor(t, "#!/bin/sh\nsleep 30\n")

	res, err := s.Start("https://gw.example")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !res.Spawned || res.PID <= 0 {
		t.Fatalf("expected live child, got %+v", res)
	}
	if !s.Alive() {
		t.Fatalf("child should be tracked after start")
	}

	s.Stop()
	if s.Alive() {
		t.Fatalf("child should be cleared after stop")
	}
	// Stop again is a no-op.
	s.Stop()
}

func TestRestartTerminatesPreviousChild(t *testing.T) {
	testlog.Start(t)
	s := shellSupervisor(t, "#!/bin/sh\nsleep 30\n")

	first, err := s.Start("https://gw.example")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := s.Start("https://gw.example")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !second.Spawned || second.PID == first.PID {
		t.Fatalf("expected a fresh child: first=%+v second=%+v", first, second)
	}
	if !s.Alive() {
		t.Fatalf("replacement child should be tracked")
	}

	// The first child must be gone; signal 0 probes for existence.
	deadline := time.Now().Add(5 * time.Second)
	for processExists(first.PID) {
		if time.Now().After(deadline) {
			t.Fatalf("previous child %d still running", first.PID)
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Stop()
}

func TestReaperClearsHandleOnSelfExit(t *testing.T) {
	testlog.Start(t)
	s := shellSupervisor(t, "#!/bin/sh\nexit 0\n")

	res, err := s.Start("https://gw.example")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !res.Spawned {
		t.Fatalf("expected spawn")
	}
	waitForExit(t, s)
}

func TestSpawnFailureSurfaces(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "local-proxy.js")
	if err := os.WriteFile(path, []byte("// stub"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	s := New(Config{
		Command:    filepath.Join(t.TempDir(), "no-such-interpreter"),
		ScriptPath: path,
		CertDir:    t.TempDir(),
		Logger:     zerolog.Nop(),
	})

	if _, err := s.Start("https://gw.example"); err == nil {
		t.Fatalf("expected spawn error for existing script with bad interpreter")
	}
	if s.Alive() {
		t.Fatalf("failed spawn must not leave a tracked child")
	}
}

func TestPathResolution(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	script := ScriptPath(dir)
	certs := CertDir(dir)
	if filepath.Dir(filepath.Dir(script)) != filepath.Join(dir, "resources") {
		t.Fatalf("unexpected script path: %q", script)
	}
	if filepath.Base(certs) != "certs" {
		t.Fatalf("unexpected cert dir: %q", certs)
	}
}
