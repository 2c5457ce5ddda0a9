package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zmask/internal/cli"
	"github.com/zarlcorp/zmask/internal/identity"
	"github.com/zarlcorp/zmask/internal/inbox"
	"github.com/zarlcorp/zmask/internal/session"
	"github.com/zarlcorp/zmask/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zmask"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zmask: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		err := runCLI(ctx, cfg, os.Args[1], os.Args[2:])
		_ = app.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "zmask: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(ctx, cfg); err != nil {
		slog.Error("tui", "err", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, cfg cli.Config, cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Printf("zmask %s\n", version)
		return nil
	case "identity":
		return cli.CmdIdentity(os.Stdout, args)
	case "email":
		return cli.CmdEmail(ctx, os.Stdout, cfg, args)
	case "avatar":
		return cli.CmdAvatar(os.Stdout, args)
	case "relay":
		return cli.CmdRelay(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runTUI(ctx context.Context, cfg cli.Config) error {
	// the in-process relay must not write over the terminal UI
	mb, closeRelay, err := cli.Mailbox(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer closeRelay()

	changes := tui.NewNotifier()
	in := inbox.New(mb,
		inbox.WithInterval(cfg.PollInterval),
		inbox.WithNotify(changes.Notify),
	)
	defer in.Close()

	sess := session.New(identity.New(), in,
		session.WithDeleter(mb),
		session.WithLogger(slog.New(slog.DiscardHandler)),
	)

	p := tea.NewProgram(tui.New(ctx, version, sess, in, changes), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
