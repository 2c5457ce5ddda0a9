// Package mailtm provides a client for the mail.tm disposable email service.
// Every call is sent as an operation descriptor to a relay endpoint, which
// forwards it to the provider.
package mailtm

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/zarlcorp/core/pkg/zcrypto"
)

var (
	// ErrTransport marks failures to reach the relay or to read its reply.
	ErrTransport = errors.New("proxy error")

	// ErrNoDomainsAvailable is returned when the provider lists no active domain.
	ErrNoDomainsAvailable = errors.New("no domains available")
)

// Domain is a mail domain offered by the provider.
type Domain struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"isActive"`
}

// Account is a provisioned mailbox with its bearer token.
type Account struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Address is a mailbox participant.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Message is an inbox entry. Listings carry only the summary fields; a full
// fetch adds Text and HTML.
type Message struct {
	ID             string    `json:"id"`
	From           Address   `json:"from"`
	To             []Address `json:"to"`
	Subject        string    `json:"subject"`
	Intro          string    `json:"intro"`
	Text           string    `json:"text,omitempty"`
	HTML           []string  `json:"html,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Seen           bool      `json:"seen"`
	HasAttachments bool      `json:"hasAttachments"`
}

// Descriptor is the operation the relay performs against the provider.
type Descriptor struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	Payload  any    `json:"payload,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Client talks to mail.tm through a relay.
type Client struct {
	relayURL string
	http     *http.Client
	now      func() time.Time
}

// NewClient creates a client that posts descriptors to relayURL.
func NewClient(relayURL string) *Client {
	return &Client{
		relayURL: relayURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
}

// ListDomains returns the active domains.
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	body, err := c.call(ctx, Descriptor{Endpoint: "/domains", Method: http.MethodGet})
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	domains, err := decodeMembers[Domain](body)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	return lo.Filter(domains, func(d Domain, _ int) bool { return d.IsActive }), nil
}

// CreateAccount registers address and exchanges the credentials for a token.
// Both steps must succeed; there is no partially created account.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (Account, error) {
	creds := map[string]string{"address": address, "password": password}

	body, err := c.call(ctx, Descriptor{Endpoint: "/accounts", Method: http.MethodPost, Payload: creds})
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	var acct struct {
		ID string `json:"id"`
	}
	if err := decode(body, &acct); err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}

	body, err = c.call(ctx, Descriptor{Endpoint: "/token", Method: http.MethodPost, Payload: creds})
	if err != nil {
		return Account{}, fmt.Errorf("create account: token: %w", err)
	}
	var tok struct {
		Token string `json:"token"`
	}
	if err := decode(body, &tok); err != nil {
		return Account{}, fmt.Errorf("create account: token: %w", err)
	}

	return Account{
		ID:       acct.ID,
		Address:  address,
		Password: password,
		Token:    tok.Token,
	}, nil
}

// CreateRandomAccount provisions a mailbox on a random active domain with a
// generated local part and password.
func (c *Client) CreateRandomAccount(ctx context.Context) (Account, error) {
	domains, err := c.ListDomains(ctx)
	if err != nil {
		return Account{}, err
	}
	if len(domains) == 0 {
		return Account{}, ErrNoDomainsAvailable
	}

	local := c.localPart()
	pw, err := zcrypto.RandBytes(16)
	if err != nil {
		return Account{}, fmt.Errorf("create random account: password: %w", err)
	}

	domain := lo.Sample(domains)
	return c.CreateAccount(ctx, local+"@"+domain.Domain, hex.EncodeToString(pw))
}

// ListMessages returns message summaries for the mailbox owning token.
func (c *Client) ListMessages(ctx context.Context, token string) ([]Message, error) {
	body, err := c.call(ctx, Descriptor{Endpoint: "/messages", Method: http.MethodGet, Token: token})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs, err := decodeMembers[Message](body)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// FetchMessage returns the full message including its bodies.
func (c *Client) FetchMessage(ctx context.Context, token, id string) (Message, error) {
	body, err := c.call(ctx, Descriptor{Endpoint: "/messages/" + id, Method: http.MethodGet, Token: token})
	if err != nil {
		return Message{}, fmt.Errorf("fetch message: %w", err)
	}

	var m Message
	if err := decode(body, &m); err != nil {
		return Message{}, fmt.Errorf("fetch message: %w", err)
	}
	return m, nil
}

// DeleteAccount removes the mailbox from the provider.
func (c *Client) DeleteAccount(ctx context.Context, token, id string) error {
	if _, err := c.call(ctx, Descriptor{Endpoint: "/accounts/" + id, Method: http.MethodDelete, Token: token}); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

var base36 = []rune("0123456789abcdefghijklmnopqrstuvwxyz")

// localPart returns "mask" + base36 unix millis + 4 random base36 chars.
func (c *Client) localPart() string {
	return "mask" + strconv.FormatInt(c.now().UnixMilli(), 36) + lo.RandomString(4, base36)
}

func (c *Client) call(ctx context.Context, d Descriptor) ([]byte, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal descriptor: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// HTTPError is a non-2xx reply from the relay.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", ErrTransport, err)
	}
	return nil
}

// decodeMembers reads a collection that may be a hydra envelope, a plain
// "member" envelope or a bare array.
func decodeMembers[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := decode(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var env struct {
		Hydra  []T `json:"hydra:member"`
		Member []T `json:"member"`
	}
	if err := decode(trimmed, &env); err != nil {
		return nil, err
	}

	switch {
	case env.Hydra != nil:
		return env.Hydra, nil
	case env.Member != nil:
		return env.Member, nil
	default:
		return []T{}, nil
	}
}
