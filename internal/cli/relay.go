package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zarlcorp/zmask/internal/mailtm"
	"github.com/zarlcorp/zmask/internal/relay"
)

// Mailbox returns a mail client wired to the configured relay. Without a
// relay URL a loopback relay is started; the returned close func stops it.
func Mailbox(cfg Config, log *slog.Logger) (*mailtm.Client, func() error, error) {
	if cfg.RelayURL != "" {
		return mailtm.NewClient(relayEndpoint(cfg.RelayURL)), func() error { return nil }, nil
	}

	l, err := relay.Start(relay.Config{ProviderURL: cfg.ProviderURL, Logger: log})
	if err != nil {
		return nil, nil, fmt.Errorf("start relay: %w", err)
	}
	return mailtm.NewClient(l.URL()), l.Close, nil
}

// relayEndpoint accepts either a relay base URL or its full mail endpoint.
func relayEndpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, relay.MailPath) {
		return base
	}
	return base + relay.MailPath
}
