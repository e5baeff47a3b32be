// Package cmd wires up the CLI flags and dispatches to the whiteboard
// core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"whiteboard/config"
	"whiteboard/internal/core"
	"whiteboard/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X whiteboard/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected whiteboard mode.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr, nil)
		return nil
	}
	switch args[0] {
	case "serve", "connect":
	case "-h", "--help", "help":
		printUsage(stderr, nil)
		return nil
	case "--version", "version":
		fmt.Fprintf(stdout, "whiteboard %s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (use --help for usage)", args[0])
	}

	// Environment first so flags override it.
	cfg := config.Default()
	cfg.Serve = args[0] == "serve"
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("whiteboard "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)

	var showHelp bool
	var size string
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Board server TCP port")
	if cfg.Serve {
		// ── server ───────────────────────────────────────────────
		fs.IntVar(&cfg.HTTPPort, "http", cfg.HTTPPort, "Also serve HTTP and websockets on this port (0 = off)")
		fs.StringSliceVar(&cfg.Boards, "boards", cfg.Boards, "Boards created at startup (comma-separated)")
		fs.IntVar(&cfg.OutboxSize, "outbox", cfg.OutboxSize, "Broadcast lines buffered per client before dropping")
		fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Bound on each write to a client")
	} else {
		// ── client ───────────────────────────────────────────────
		fs.StringVar(&cfg.Host, "host", cfg.Host, "Server host (or give it as an argument)")
		fs.StringVar(&cfg.PIN, "pin", cfg.PIN, "Six-digit PIN shown by a server on this network")
		fs.Bool("ws", cfg.Transport == "ws", "Connect through the HTTP front's websocket (-p is then the --http port)")
		fs.StringVarP(&cfg.User, "user", "u", cfg.User, "Register this username on connect")
		fs.StringVarP(&cfg.Board, "board", "b", cfg.Board, "Board to join with --user")
		fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Bound on each connection attempt")
		fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Bound on each request round trip")
		fs.StringVar(&size, "size", fmt.Sprintf("%dx%d", cfg.CanvasWidth, cfg.CanvasHeight), "Local canvas size WxH")

		// ── SSH tunnel ───────────────────────────────────────────
		fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
		fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
		fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
		fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
		fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
		fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
		fs.DurationVar(&cfg.KeepAlive, "keepalive", cfg.KeepAlive, "SSH keepalive interval (0 = off)")
	}

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate the configuration, print the plan and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if showHelp {
		printUsage(stderr, fs)
		return nil
	}
	if err := applyArgs(cfg, fs, size); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		printPlan(stdout, cfg)
		return nil
	}

	// ── run ──────────────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose + 1)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// applyArgs folds positional arguments and the values flag parsing
// leaves as strings into cfg.
func applyArgs(cfg *config.Config, fs *flag.FlagSet, size string) error {
	if fs.Lookup("ws") != nil {
		if v, _ := fs.GetBool("ws"); v {
			cfg.Transport = "ws"
		}
	}
	rest := fs.Args()
	if cfg.Serve {
		if len(rest) > 0 {
			return fmt.Errorf("serve takes no arguments, got %q", strings.Join(rest, " "))
		}
		return nil
	}

	switch len(rest) {
	case 0:
	case 1:
		cfg.Host = rest[0]
	default:
		return fmt.Errorf("too many arguments for connect: %q", strings.Join(rest, " "))
	}

	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return fmt.Errorf("size %q: want WxH, e.g. 800x600", size)
	}
	var err error
	if cfg.CanvasWidth, err = strconv.Atoi(w); err != nil {
		return fmt.Errorf("size %q: bad width", size)
	}
	if cfg.CanvasHeight, err = strconv.Atoi(h); err != nil {
		return fmt.Errorf("size %q: bad height", size)
	}
	return nil
}

// printPlan describes what the validated configuration would do.
func printPlan(w io.Writer, cfg *config.Config) {
	if cfg.Serve {
		fmt.Fprintf(w, "serve boards %s on :%d\n", strings.Join(cfg.Boards, ","), cfg.Port)
		if cfg.HTTPPort > 0 {
			fmt.Fprintf(w, "http front on :%d\n", cfg.HTTPPort)
		}
		return
	}
	addr, err := cfg.ServerAddress(util.LocalIPv4())
	if err != nil {
		addr = "?"
	}
	fmt.Fprintf(w, "connect to %s over %s\n", addr, cfg.Transport)
	if cfg.TunnelEnabled {
		fmt.Fprintf(w, "via ssh %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	if cfg.User != "" {
		fmt.Fprintf(w, "register %s on %s\n", cfg.User, cfg.Board)
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `whiteboard - shared whiteboard server and client v%s

Usage:
  whiteboard serve [options]                  Run the board server
  whiteboard connect [options] [host]         Connect and draw from a prompt

`, version)
	if fs != nil {
		fmt.Fprintln(w, "Options:")
		fs.PrintDefaults()
		return
	}
	fmt.Fprintf(w, `Examples:
  whiteboard serve --boards default,room1     Serve two boards on :%d
  whiteboard serve --http 8080                Also serve websockets and the API
  whiteboard connect -u alice                 Join the default board locally
  whiteboard connect --pin 001042 -u bob      Reach a server by its PIN
  whiteboard connect -T admin@bastion host    Connect through an SSH gateway

Run "whiteboard <command> --help" for the options of each command.
`, config.DefaultPort)
}
