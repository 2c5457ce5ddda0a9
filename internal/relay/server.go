package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

func newServer(r *Relay) *http.Server {
	return &http.Server{
		Handler:      r.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
	}
}

// Serve runs the relay on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg Config) error {
	r := New(cfg)
	srv := newServer(r)
	srv.Addr = cfg.Addr

	errc := make(chan error, 1)
	go func() {
		r.log.Info("relay listening", "addr", cfg.Addr, "provider", r.provider)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("relay: %w", err)
	case <-ctx.Done():
	}

	r.log.Info("relay shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}

// Local is a relay running in-process on a loopback port.
type Local struct {
	srv *http.Server
	url string
}

// Start launches a relay in the background. An empty cfg.Addr picks a free
// loopback port.
func Start(cfg Config) (*Local, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("relay listen: %w", err)
	}

	r := New(cfg)
	srv := newServer(r)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("relay stopped", "err", err)
		}
	}()

	return &Local{srv: srv, url: "http://" + ln.Addr().String() + MailPath}, nil
}

// URL is the descriptor endpoint of the running relay.
func (l *Local) URL() string { return l.url }

// Close stops the relay, waiting briefly for in-flight requests.
func (l *Local) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return l.srv.Shutdown(ctx)
}
