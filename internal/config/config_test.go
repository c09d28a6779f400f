package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/selfserve/proxyctl/internal/controller"
	"github.com/selfserve/proxyctl/internal/testutil/testlog"
)

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if Default().Domain != controller.DefaultTargetDomain {
		t.Fatalf("unexpected default domain: %q", Default().Domain)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "proxyctl.toml")
	content := `
domain = "redirect.test.local"
hosts_path = "/tmp/hosts-under-test"
gateway = "https://gw.example"
listen_addr = "127.0.0.1:9999"
cors_origins = ["http://localhost:5173"]
journal_path = "/tmp/journal.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != "redirect.test.local" {
		t.Fatalf("domain override lost: %q", cfg.Domain)
	}
	if cfg.HostsPath != "/tmp/hosts-under-test" {
		t.Fatalf("hosts_path override lost: %q", cfg.HostsPath)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("listen_addr override lost: %q", cfg.ListenAddr)
	}
	if cfg.ProxyCommand == "" {
		t.Fatalf("unset fields must keep their defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestValidateRejectsHostsSyntaxInDomain(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.Domain = "bad domain # comment"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for domain with hosts syntax")
	}
}

func TestValidateRejectsEmptyListenAddr(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.ListenAddr = "  "
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for empty listen_addr")
	}
}
