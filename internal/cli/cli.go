// Package cli implements zmask's command-line subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zmask/internal/avatar"
	"github.com/zarlcorp/zmask/internal/identity"
	"github.com/zarlcorp/zmask/internal/relay"
)

// CmdIdentity generates and prints a complete identity.
func CmdIdentity(w io.Writer, args []string) error {
	id := identity.New().Generate()

	if hasFlag(args, "--json") {
		return printJSON(w, id)
	}
	printIdentity(w, id)
	return nil
}

// CmdEmail provisions a live mailbox and prints its credentials. With
// --local it only prints a fabricated address.
func CmdEmail(ctx context.Context, w io.Writer, cfg Config, args []string) error {
	if hasFlag(args, "--local") {
		fmt.Fprintln(w, identity.New().Email())
		return nil
	}

	mb, closeRelay, err := Mailbox(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer closeRelay()

	acct, err := mb.CreateRandomAccount(ctx)
	if err != nil {
		return fmt.Errorf("create mailbox: %w", err)
	}

	if hasFlag(args, "--json") {
		return printJSON(w, acct)
	}
	fmt.Fprintf(w, "  address:  %s\n", acct.Address)
	fmt.Fprintf(w, "  password: %s\n", acct.Password)
	fmt.Fprintf(w, "  token:    %s\n", acct.Token)
	return nil
}

// CmdAvatar renders an avatar. With --out DIR the PNG is written into DIR,
// otherwise its data URI is printed.
func CmdAvatar(w io.Writer, args []string) error {
	seed, hasSeed := flagValue(args, "--seed")
	if !hasSeed {
		id := identity.New().Generate()
		seed = avatar.Seed(id.FirstName, id.LastName, id.Email)
	}

	size := avatar.DefaultSize
	if v, ok := flagValue(args, "--size"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("size: %w", err)
		}
		size = n
	}

	dir, toFile := flagValue(args, "--out")
	if !toFile {
		uri, err := avatar.DataURI(seed, size)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, uri)
		return nil
	}

	name := "avatar.png"
	if hasSeed {
		name = fileName(seed) + ".png"
	}
	if err := WriteAvatar(zfilesystem.NewOSFileSystem(dir), name, seed, size); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s/%s\n", strings.TrimRight(dir, "/"), name)
	return nil
}

// WriteAvatar renders the avatar for seed and stores it as name in fsys.
func WriteAvatar(fsys zfilesystem.ReadWriteFileFS, name, seed string, size int) error {
	png, err := avatar.Render(seed, size)
	if err != nil {
		return err
	}
	if len(png) == 0 {
		return fmt.Errorf("size %d: nothing to draw", size)
	}
	if err := fsys.WriteFile(name, png, 0o644); err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}
	return nil
}

// CmdRelay serves the relay until ctx is cancelled.
func CmdRelay(ctx context.Context, cfg Config) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return relay.Serve(ctx, relay.Config{
		Addr:        cfg.RelayAddr,
		ProviderURL: cfg.ProviderURL,
		Logger:      log,
	})
}

func printIdentity(w io.Writer, id identity.Identity) {
	fmt.Fprintf(w, "  name:     %s\n", id.FullName())
	fmt.Fprintf(w, "  username: %s\n", id.Username)
	fmt.Fprintf(w, "  email:    %s\n", id.Email)
	fmt.Fprintf(w, "  phone:    %s\n", id.Phone)
	fmt.Fprintf(w, "  born:     %s (%d y.o.)\n", id.DateOfBirth, id.Age)
	fmt.Fprintf(w, "  address:  %s, %s\n", id.Street, id.City)
	fmt.Fprintf(w, "  country:  %s\n", id.Country)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}

// flagValue finds "--name value" or "--name=value".
func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v, true
		}
		if strings.EqualFold(a, flag) && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._@-]+`)

// fileName makes seed safe to use as a file name.
func fileName(seed string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(seed, "_"), "._")
	if s == "" {
		return "avatar"
	}
	return s
}
