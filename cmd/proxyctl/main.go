package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/selfserve/proxyctl/internal/config"
	"github.com/selfserve/proxyctl/internal/controller"
	"github.com/selfserve/proxyctl/internal/journal"
	"github.com/selfserve/proxyctl/internal/logging"
	"github.com/selfserve/proxyctl/internal/observability"
	"github.com/selfserve/proxyctl/internal/server"
	"github.com/selfserve/proxyctl/internal/supervisor"
)

const usageText = `usage: proxyctl [-config path] <command>

commands:
  init               startup snapshot of the hosts table
  run <gateway-url>  add the redirect entry and start the proxy child
  stop               terminate the proxy child, leave the hosts table alone
  restore            terminate the proxy child and remove the redirect entry
  status             fresh hosts read plus in-memory lifecycle flags
  history [limit]    recent lifecycle transitions from the journal
  serve              run the HTTP control surface for the UI shell
`

func main() {
	logging.ConfigureRuntime()

	configPath := flag.String("config", "", "path to proxyctl.toml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := loadFileConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "proxyctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg, args); err != nil {
		fmt.Fprintf(os.Stderr, "proxyctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, args []string) error {
	logger := observability.InitLogger("proxyctl")

	sup := supervisor.New(supervisor.Config{
		Command:    cfg.ProxyCommand,
		ScriptPath: cfg.ProxyScript,
		CertDir:    cfg.CertDir,
		Logger:     logger,
	})

	var jr *journal.Journal
	if cfg.JournalPath != "" {
		opened, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer opened.Close()
		jr = opened
	}

	ctl := controller.New(controller.Config{
		Domain:    cfg.Domain,
		HostsPath: cfg.HostsPath,
		Logger:    logger,
	}, sup, jr)

	switch args[0] {
	case "init":
		res, err := ctl.Initialize()
		if err != nil {
			return err
		}
		return printJSON(res)
	case "run":
		gateway := cfg.Gateway
		if len(args) > 1 {
			gateway = args[1]
		}
		if strings.TrimSpace(gateway) == "" {
			return fmt.Errorf("gateway url required (argument or config gateway)")
		}
		res, err := ctl.Run(gateway)
		if err != nil {
			return err
		}
		return printJSON(res)
	case "stop":
		res, err := ctl.Stop()
		if err != nil {
			return err
		}
		return printJSON(res)
	case "restore":
		res, err := ctl.Restore()
		if err != nil {
			return err
		}
		return printJSON(res)
	case "status":
		res, err := ctl.Status()
		if err != nil {
			return err
		}
		return printJSON(res)
	case "history":
		if jr == nil {
			return fmt.Errorf("history requires journal_path in the config")
		}
		limit := 20
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed <= 0 {
				return fmt.Errorf("history limit must be a positive integer")
			}
			limit = parsed
		}
		entries, err := jr.Recent(limit)
		if err != nil {
			return err
		}
		return printJSON(entries)
	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Config{
			ListenAddr:  cfg.ListenAddr,
			CorsOrigins: cfg.CorsOrigins,
			Logger:      logger,
		}, ctl, jr)
		return srv.Run(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
