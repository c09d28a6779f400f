package controller

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/selfserve/proxyctl/internal/hostsfile"
	"github.com/selfserve/proxyctl/internal/journal"
	"github.com/selfserve/proxyctl/internal/observability"
	"github.com/selfserve/proxyctl/internal/supervisor"
)

// DefaultTargetDomain is the hostname whose presence in the hosts table
// signals that redirection is active.
const DefaultTargetDomain = "server.self-serve.windsurf.com"

// Config fixes the redirect target and the hosts table location for one
// controller instance.
type Config struct {
	Domain    string
	HostsPath string
	Logger    zerolog.Logger
}

// DefaultConfig targets the canonical domain in the OS hosts file.
func DefaultConfig() Config {
	return Config{
		Domain:    DefaultTargetDomain,
		HostsPath: hostsfile.DefaultPath(),
	}
}

// InitializeResult is the startup snapshot payload.
type InitializeResult struct {
	HostsModified bool `json:"hosts_modified"`
	ProxyRunning  bool `json:"proxy_running"`
	CertInstalled bool `json:"cert_installed"`
}

// RunResult acknowledges a run operation. Spawned is false when the proxy
// script was absent and the spawn step was skipped.
type RunResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Spawned bool   `json:"spawned"`
	PID     int    `json:"pid,omitempty"`
}

// Ack acknowledges a stop or restore operation.
type Ack struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// StatusResult is the live status payload. ProxyRunning mirrors the running
// flag; ProxySupervised reports whether a spawned child is actually still
// tracked, so the two can disagree after a soft-skipped spawn or a child
// that exited on its own.
type StatusResult struct {
	HostsModified   bool `json:"hosts_modified"`
	ProxyRunning    bool `json:"proxy_running"`
	ProxySupervised bool `json:"proxy_supervised"`
}

// Controller orchestrates the hosts-table editor and the process supervisor
// into the caller-facing lifecycle operations.
type Controller struct {
	cfg Config
	sup *supervisor.Supervisor
	jr  *journal.Journal

	// opMu serializes run/stop/restore so concurrent callers cannot
	// interleave the hosts-edit, spawn, and flag steps of two operations.
	opMu sync.Mutex

	// mu guards the running flag only; it is never held across file I/O or
	// process syscalls, so status reads stay cheap.
	mu      sync.Mutex
	running bool
}

// New builds a controller. The journal is optional; a nil journal disables
// transition recording.
func New(cfg Config, sup *supervisor.Supervisor, jr *journal.Journal) *Controller {
	if cfg.Domain == "" {
		cfg.Domain = DefaultTargetDomain
	}
	if cfg.HostsPath == "" {
		cfg.HostsPath = hostsfile.DefaultPath()
	}
	return &Controller{cfg: cfg, sup: sup, jr: jr}
}

// Initialize reports the startup snapshot: what the hosts table says on
// disk. ProxyRunning is always false here; this models "what does disk
// say", not "what do we currently run". Certificate installation is handled
// by an external collaborator before this call, so it reports installed.
func (c *Controller) Initialize() (InitializeResult, error) {
	table, err := hostsfile.Load(c.cfg.HostsPath)
	if err != nil {
		observability.RecordOperation("initialize", journal.OutcomeError)
		return InitializeResult{}, err
	}
	observability.RecordOperation("initialize", journal.OutcomeOK)
	return InitializeResult{
		HostsModified: table.HasRedirect(c.cfg.Domain),
		ProxyRunning:  false,
		CertInstalled: true,
	}, nil
}

// Run ensures the redirect entry is present, then attempts to spawn the
// proxy child. A hosts failure aborts the whole operation; a missing script
// is a soft no-op and the lifecycle still reports running.
func (c *Controller) Run(gatewayURL string) (RunResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	table, err := hostsfile.Load(c.cfg.HostsPath)
	if err != nil {
		c.fail("run", gatewayURL, err)
		return RunResult{}, err
	}
	if updated, added := table.AddRedirect(c.cfg.Domain); added {
		if err := hostsfile.Write(c.cfg.HostsPath, updated); err != nil {
			c.fail("run", gatewayURL, err)
			return RunResult{}, err
		}
		c.cfg.Logger.Info().
			Str("domain", c.cfg.Domain).
			Str("hosts", c.cfg.HostsPath).
			Msg("redirect entry added")
	}

	// The flag goes up before the spawn attempt so no observer can see a
	// live child with the flag still down.
	c.setRunning(true)

	res, err := c.sup.Start(gatewayURL)
	if err != nil {
		c.setRunning(false)
		c.fail("run", gatewayURL, err)
		return RunResult{}, fmt.Errorf("proxy spawn failed: %w", err)
	}

	outcome := journal.OutcomeOK
	msg := "proxy started"
	if !res.Spawned {
		outcome = journal.OutcomeSkipped
		msg = "proxy script absent, redirect active"
	}
	c.record(journal.Entry{Op: "run", Outcome: outcome, Gateway: gatewayURL, PID: res.PID})
	observability.RecordOperation("run", outcome)
	return RunResult{OK: true, Message: msg, Spawned: res.Spawned, PID: res.PID}, nil
}

// Stop terminates the supervised child and lowers the running flag. It never
// touches the hosts table and is an idempotent no-op success when nothing
// is running.
func (c *Controller) Stop() (Ack, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.sup.Stop()
	c.setRunning(false)

	c.record(journal.Entry{Op: "stop", Outcome: journal.OutcomeOK})
	observability.RecordOperation("stop", journal.OutcomeOK)
	return Ack{OK: true, Message: "proxy stopped"}, nil
}

// Restore tears the process down like Stop and additionally removes the
// redirect entry. The process side is cleaned up even when the hosts edit
// fails; the error is surfaced so the caller knows to retry the hosts
// cleanup alone.
func (c *Controller) Restore() (Ack, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.sup.Stop()
	c.setRunning(false)

	table, err := hostsfile.Load(c.cfg.HostsPath)
	if err != nil {
		c.fail("restore", "", err)
		return Ack{}, err
	}
	updated, removed := table.RemoveRedirect(c.cfg.Domain)
	if err := hostsfile.Write(c.cfg.HostsPath, updated); err != nil {
		c.fail("restore", "", err)
		return Ack{}, err
	}
	if removed {
		c.cfg.Logger.Info().
			Str("domain", c.cfg.Domain).
			Str("hosts", c.cfg.HostsPath).
			Msg("redirect entry removed")
	}

	c.record(journal.Entry{Op: "restore", Outcome: journal.OutcomeOK})
	observability.RecordOperation("restore", journal.OutcomeOK)
	return Ack{OK: true, Message: "restored"}, nil
}

// Status re-reads the hosts table and snapshots the in-memory flags. It
// never trusts a cached table and does not block behind in-flight mutating
// operations.
func (c *Controller) Status() (StatusResult, error) {
	table, err := hostsfile.Load(c.cfg.HostsPath)
	if err != nil {
		observability.RecordOperation("status", journal.OutcomeError)
		return StatusResult{}, err
	}

	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	observability.RecordOperation("status", journal.OutcomeOK)
	return StatusResult{
		HostsModified:   table.HasRedirect(c.cfg.Domain),
		ProxyRunning:    running,
		ProxySupervised: c.sup.Alive(),
	}, nil
}

func (c *Controller) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
	observability.SetProxyRunning(v)
}

func (c *Controller) fail(op, gateway string, opErr error) {
	c.record(journal.Entry{Op: op, Outcome: journal.OutcomeError, Gateway: gateway, Detail: opErr.Error()})
	observability.RecordOperation(op, journal.OutcomeError)
}

func (c *Controller) record(e journal.Entry) {
	if c.jr == nil {
		return
	}
	if err := c.jr.Record(e); err != nil {
		c.cfg.Logger.Warn().Err(err).Msg("journal write failed")
	}
}
