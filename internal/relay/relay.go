// Package relay forwards mailbox operations to the mail.tm API behind an
// endpoint allow-list, so clients never talk to the provider directly.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MailPath is the route that accepts operation descriptors.
const MailPath = "/api/mail"

// DefaultProviderURL is the public mail.tm API.
const DefaultProviderURL = "https://api.mail.tm"

// ErrNotAllowed is returned for endpoints outside the allow-list.
var ErrNotAllowed = errors.New("endpoint not allowed")

// allowed endpoint prefixes. Matching is by prefix only, so "/domainsX"
// passes as well; the provider rejects anything it does not know.
var allowed = []string{"/domains", "/accounts", "/token", "/messages"}

// Config holds relay settings.
type Config struct {
	Addr        string
	ProviderURL string
	Logger      *slog.Logger
}

// Relay forwards descriptors to the provider.
type Relay struct {
	provider string
	http     *http.Client
	log      *slog.Logger
}

// descriptor is the operation a client asks the relay to perform.
type descriptor struct {
	Endpoint string          `json:"endpoint" binding:"required"`
	Method   string          `json:"method"`
	Payload  json.RawMessage `json:"payload"`
	Token    string          `json:"token"`
}

// New creates a relay for cfg. Empty fields fall back to defaults.
func New(cfg Config) *Relay {
	provider := cfg.ProviderURL
	if provider == "" {
		provider = DefaultProviderURL
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Relay{
		provider: strings.TrimRight(provider, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// Allowed reports whether endpoint starts with an allow-listed prefix.
func Allowed(endpoint string) bool {
	for _, a := range allowed {
		if strings.HasPrefix(endpoint, a) {
			return true
		}
	}
	return false
}

// Handler returns the relay's HTTP routes.
func (r *Relay) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(r.recovery())
	router.Use(requestID())
	router.Use(r.logger())
	router.Use(securityHeaders())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST(MailPath, r.handleMail)

	return router
}

func (r *Relay) handleMail(c *gin.Context) {
	var d descriptor
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := validate(d); err != nil {
		r.log.Warn("relay rejected", "endpoint", d.Endpoint, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusForbidden, gin.H{"error": "Endpoint not allowed"})
		return
	}

	resp, err := r.forward(c.Request.Context(), d)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.JSON(resp.StatusCode, gin.H{"error": string(body)})
		return
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") || strings.Contains(ct, "application/ld+json") {
		if !json.Valid(body) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid json from provider"})
			return
		}
		c.Data(resp.StatusCode, "application/json; charset=utf-8", body)
		return
	}

	if len(body) == 0 {
		c.Status(resp.StatusCode)
		return
	}
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	c.Data(resp.StatusCode, ct, body)
}

func validate(d descriptor) error {
	if !Allowed(d.Endpoint) {
		return fmt.Errorf("%w: %s", ErrNotAllowed, d.Endpoint)
	}
	return nil
}

// forward performs d against the provider.
func (r *Relay) forward(ctx context.Context, d descriptor) (*http.Response, error) {
	method := strings.ToUpper(d.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if hasPayload(d.Payload) && (method == http.MethodPost || method == http.MethodPatch) {
		body = bytes.NewReader(d.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.provider+d.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	return resp, nil
}

func hasPayload(p json.RawMessage) bool {
	p = bytes.TrimSpace(p)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}
