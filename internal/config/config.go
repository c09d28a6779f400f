// Package config loads and validates the daemon configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/selfserve/proxyctl/internal/controller"
	"github.com/selfserve/proxyctl/internal/hostsfile"
	"github.com/selfserve/proxyctl/internal/supervisor"
)

// Config carries every tunable of the proxyctl daemon. The zero value is not
// usable; start from Default.
type Config struct {
	Domain       string   `toml:"domain"`
	HostsPath    string   `toml:"hosts_path"`
	ProxyCommand string   `toml:"proxy_command"`
	ProxyScript  string   `toml:"proxy_script"`
	CertDir      string   `toml:"cert_dir"`
	Gateway      string   `toml:"gateway"`
	ListenAddr   string   `toml:"listen_addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	JournalPath  string   `toml:"journal_path"`
}

// Default returns the runtime defaults: canonical domain, OS hosts path,
// install-dir relative proxy resources, local-only control listener.
func Default() Config {
	return Config{
		Domain:       controller.DefaultTargetDomain,
		HostsPath:    hostsfile.DefaultPath(),
		ProxyCommand: supervisor.DefaultCommand,
		ListenAddr:   "127.0.0.1:9400",
		CorsOrigins:  []string{"http://localhost:3000"},
	}
}

// Load reads a TOML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the controller cannot run with. The
// gateway URL is deliberately not validated here: it is passed through to
// the proxy child, which owns rejecting malformed values.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Domain) == "" {
		return fmt.Errorf("config missing domain")
	}
	if strings.ContainsAny(cfg.Domain, " \t#") {
		return fmt.Errorf("config domain %q contains hosts-file syntax", cfg.Domain)
	}
	if strings.TrimSpace(cfg.HostsPath) == "" {
		return fmt.Errorf("config missing hosts_path")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("config missing listen_addr")
	}
	for i, origin := range cfg.CorsOrigins {
		if _, err := url.Parse(origin); err != nil {
			return fmt.Errorf("cors_origins[%d] invalid: %w", i, err)
		}
	}
	return nil
}
