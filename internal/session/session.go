// Package session holds the application state of one zmask run: the current
// identity and avatar, its live mailbox and the transient toast.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zarlcorp/zmask/internal/avatar"
	"github.com/zarlcorp/zmask/internal/burn"
	"github.com/zarlcorp/zmask/internal/identity"
	"github.com/zarlcorp/zmask/internal/inbox"
	"github.com/zarlcorp/zmask/internal/mailtm"
)

// ToastDuration is how long a toast stays visible.
const ToastDuration = 1800 * time.Millisecond

const (
	toastEmailCreated = "Live email created!"
	toastEmailFailed  = "Email creation failed"
)

// Generator produces identities.
type Generator interface {
	Generate() identity.Identity
}

// Inbox is the mailbox lifecycle the session drives.
type Inbox interface {
	Activate(ctx context.Context) (mailtm.Account, error)
	Reset()
	Snapshot() inbox.State
}

// Toast is a short-lived notice.
type Toast struct {
	Text    string
	Err     bool
	Expires time.Time
}

// State is an immutable view of the session.
type State struct {
	Identity identity.Identity
	Avatar   []byte // PNG
	Toast    *Toast
	Inbox    inbox.State
}

// Option configures a Session.
type Option func(*Session)

// WithAvatarSize sets the rendered avatar edge length.
func WithAvatarSize(n int) Option {
	return func(s *Session) { s.avatarSize = n }
}

// WithDeleter lets Burn remove the provider account.
func WithDeleter(d burn.AccountDeleter) Option {
	return func(s *Session) { s.deleter = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the single owner of application state.
type Session struct {
	gen        Generator
	inbox      Inbox
	deleter    burn.AccountDeleter
	avatarSize int
	log        *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	identity identity.Identity
	avatar   []byte
	toast    *Toast
	epoch    uint64 // bumped whenever the identity is replaced
}

// New creates a session with a freshly generated identity.
func New(gen Generator, in Inbox, opts ...Option) *Session {
	s := &Session{
		gen:        gen,
		inbox:      in,
		avatarSize: avatar.DefaultSize,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	s.identity, s.avatar = s.fresh()
	return s
}

// Regenerate replaces the identity and avatar and resets the mailbox.
func (s *Session) Regenerate() {
	id, img := s.fresh()

	s.mu.Lock()
	s.epoch++
	s.identity = id
	s.avatar = img
	s.mu.Unlock()

	s.inbox.Reset()
}

// ActivateEmail provisions a live mailbox and puts its address on the
// identity. The avatar keeps the seed it was drawn with. Calls made while a
// mailbox is being created or is already active do nothing.
func (s *Session) ActivateEmail(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	acct, err := s.inbox.Activate(ctx)
	switch {
	case errors.Is(err, inbox.ErrBusy), errors.Is(err, inbox.ErrReset):
		return err
	case err != nil:
		s.log.Warn("email creation failed", "err", err)
		s.setToast(toastEmailFailed, true)
		return err
	}

	s.mu.Lock()
	if epoch != s.epoch {
		// the identity was replaced while the account was being created
		s.mu.Unlock()
		return inbox.ErrReset
	}
	s.identity = s.identity.WithEmail(acct.Address)
	s.mu.Unlock()

	s.setToast(toastEmailCreated, false)
	return nil
}

// BurnRequest describes what Burn would tear down right now.
func (s *Session) BurnRequest() burn.Request {
	st := s.inbox.Snapshot()

	s.mu.Lock()
	id := s.identity
	s.mu.Unlock()

	req := burn.Request{
		Identity:   id,
		Messages:   len(st.Messages),
		Deleter:    s.deleter,
		Inbox:      s.inbox,
		Identities: discarder{s},
	}
	if st.Status == inbox.Active {
		acct := st.Account
		req.Account = &acct
	}
	return req
}

// Burn deletes the live mailbox if there is one, drops local state and
// starts over with a new identity.
func (s *Session) Burn(ctx context.Context) burn.Result {
	res := burn.Execute(ctx, s.BurnRequest())
	if res.HasErrors() {
		s.log.Warn("burn finished with errors", "summary", res.Summary())
	}

	id, img := s.fresh()
	s.mu.Lock()
	s.epoch++
	s.identity = id
	s.avatar = img
	s.mu.Unlock()

	return res
}

// Snapshot returns the current state. Expired toasts are omitted.
func (s *Session) Snapshot() State {
	in := s.inbox.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Identity: s.identity,
		Avatar:   s.avatar,
		Inbox:    in,
	}
	if s.toast != nil && s.now().Before(s.toast.Expires) {
		t := *s.toast
		st.Toast = &t
	}
	return st
}

func (s *Session) setToast(text string, isErr bool) {
	s.mu.Lock()
	s.toast = &Toast{Text: text, Err: isErr, Expires: s.now().Add(ToastDuration)}
	s.mu.Unlock()
}

// fresh generates an identity and draws its avatar.
func (s *Session) fresh() (identity.Identity, []byte) {
	id := s.gen.Generate()
	img, err := avatar.Render(avatar.Seed(id.FirstName, id.LastName, id.Email), s.avatarSize)
	if err != nil {
		s.log.Warn("avatar render failed", "err", err)
	}
	return id, img
}

// discarder clears the identity slot during a burn.
type discarder struct{ s *Session }

func (d discarder) Discard() {
	d.s.mu.Lock()
	d.s.identity = identity.Identity{}
	d.s.avatar = nil
	d.s.mu.Unlock()
}
