package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/selfserve/proxyctl/internal/config"
)

type fileConfig struct {
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

func loadFileConfig(path string) (config.Config, error) {
	cfg := config.Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("load proxyctl config: %w", err)
	}

	if meta.IsDefined("domain") {
		domain := strings.TrimSpace(raw.Domain)
		if domain != "" {
			cfg.Domain = domain
		}
	}

	if meta.IsDefined("hosts_path") {
		cfg.HostsPath = strings.TrimSpace(raw.HostsPath)
	}

	if meta.IsDefined("proxy_command") {
		cfg.ProxyCommand = strings.TrimSpace(raw.ProxyCommand)
	}

	if meta.IsDefined("proxy_script") {
		cfg.ProxyScript = strings.TrimSpace(raw.ProxyScript)
	}

	if meta.IsDefined("cert_dir") {
		cfg.CertDir = strings.TrimSpace(raw.CertDir)
	}

	if meta.IsDefined("gateway") {
		cfg.Gateway = strings.TrimSpace(raw.Gateway)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("journal_path") {
		cfg.JournalPath = strings.TrimSpace(raw.JournalPath)
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
