// Package inbox keeps a live mailbox in sync: it provisions the account,
// polls for messages while the inbox is on screen and tracks which message
// is being read.
package inbox

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/zarlcorp/zmask/internal/mailtm"
)

// DefaultInterval is the polling period for new messages.
const DefaultInterval = 5 * time.Second

var (
	// ErrBusy is returned by Activate while a mailbox is being created or is
	// already active.
	ErrBusy = errors.New("mailbox already active")

	// ErrInactive is returned by operations that need an active mailbox.
	ErrInactive = errors.New("no active mailbox")

	// ErrReset is returned by Activate when Reset ran before the account
	// came back; the account is dropped.
	ErrReset = errors.New("mailbox reset during creation")
)

// Status is the mailbox lifecycle state.
type Status int

const (
	Idle Status = iota
	Creating
	Active
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Active:
		return "active"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Mailbox is the provider surface the sync needs.
type Mailbox interface {
	CreateRandomAccount(ctx context.Context) (mailtm.Account, error)
	ListMessages(ctx context.Context, token string) ([]mailtm.Message, error)
	FetchMessage(ctx context.Context, token, id string) (mailtm.Message, error)
}

// Selection is the message currently being read. Degraded means the full
// fetch failed and Message holds only the listing summary.
type Selection struct {
	Message  mailtm.Message
	Degraded bool
}

// State is a point-in-time copy of the sync state.
type State struct {
	Status      Status
	Account     mailtm.Account
	CreateErr   error
	Messages    []mailtm.Message
	ListErr     error
	Loading     bool
	Selection   *Selection
	AutoRefresh bool
	Mounted     bool
	Polling     bool
}

// Option configures a Sync.
type Option func(*Sync)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(s *Sync) { s.interval = d }
}

// WithScheduler replaces the ticker used for polling.
func WithScheduler(sc Scheduler) Option {
	return func(s *Sync) { s.sched = sc }
}

// WithNotify registers fn to be called after every state change. It is
// called without locks held and may run on any goroutine.
func WithNotify(fn func()) Option {
	return func(s *Sync) { s.notify = fn }
}

// Sync owns one mailbox and its polling timer.
type Sync struct {
	mb       Mailbox
	sched    Scheduler
	interval time.Duration
	notify   func()

	// ticks refresh with this context; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	status    Status
	account   mailtm.Account
	createErr error
	messages  []mailtm.Message
	listErr   error
	inflight  int
	selection *Selection
	auto      bool
	mounted   bool
	handle    Handle

	// gen changes on Reset so results from before it are dropped
	gen uint64
	// selGen changes whenever the selection is replaced or cleared, so a
	// fetch that lands after Back or Unmount is dropped
	selGen uint64
	// seq numbers refreshes; applied is the newest one whose result landed
	seq     uint64
	applied uint64
}

// New creates an idle sync over mb. Auto-refresh starts enabled.
func New(mb Mailbox, opts ...Option) *Sync {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sync{
		mb:       mb,
		sched:    TickerScheduler{},
		interval: DefaultInterval,
		notify:   func() {},
		ctx:      ctx,
		cancel:   cancel,
		auto:     true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Activate provisions a mailbox and returns its account as soon as it is
// Active. It does not list messages; mounting the inbox does the first
// refresh and starts polling. On failure the state becomes Failed and keeps
// the error.
func (s *Sync) Activate(ctx context.Context) (mailtm.Account, error) {
	s.mu.Lock()
	if s.status == Creating || s.status == Active {
		s.mu.Unlock()
		return mailtm.Account{}, ErrBusy
	}
	s.status = Creating
	s.createErr = nil
	gen := s.gen
	s.mu.Unlock()
	s.notify()

	acct, err := s.mb.CreateRandomAccount(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return mailtm.Account{}, ErrReset
	}
	if err != nil {
		s.status = Failed
		s.createErr = err
		s.mu.Unlock()
		s.notify()
		return mailtm.Account{}, err
	}
	s.status = Active
	s.account = acct
	s.messages = nil
	s.listErr = nil
	s.selection = nil
	s.reconcile()
	mounted := s.mounted
	s.mu.Unlock()
	s.notify()

	// an inbox already on screen gets its first listing in the background
	if mounted {
		s.tick()
	}
	return acct, nil
}

// Reset returns to Idle, dropping the account, messages and selection and
// stopping the timer. Results of calls still in flight are ignored.
func (s *Sync) Reset() {
	s.mu.Lock()
	s.gen++
	s.status = Idle
	s.account = mailtm.Account{}
	s.createErr = nil
	s.messages = nil
	s.listErr = nil
	s.inflight = 0
	s.selection = nil
	s.mounted = false
	s.applied = s.seq
	s.reconcile()
	s.mu.Unlock()
	s.notify()
}

// Refresh lists messages now. Overlapping refreshes are allowed; a reply
// older than one already applied is discarded.
func (s *Sync) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.status != Active {
		s.mu.Unlock()
		return ErrInactive
	}
	s.seq++
	seq, gen, token := s.seq, s.gen, s.account.Token
	s.inflight++
	s.mu.Unlock()
	s.notify()

	msgs, err := s.mb.ListMessages(ctx, token)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.inflight--
	if seq > s.applied {
		s.applied = seq
		if err != nil {
			s.listErr = err
		} else {
			s.messages = msgs
			s.listErr = nil
		}
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// Open fetches the full message and selects it. If the fetch fails the
// listing summary is shown instead, marked degraded. A fetch that lands
// after Back, Unmount or a newer Open is dropped.
func (s *Sync) Open(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.status != Active {
		s.mu.Unlock()
		return ErrInactive
	}
	idx := slices.IndexFunc(s.messages, func(m mailtm.Message) bool { return m.ID == id })
	var summary mailtm.Message
	if idx >= 0 {
		summary = s.messages[idx]
	}
	s.selGen++
	gen, selGen, token := s.gen, s.selGen, s.account.Token
	s.mu.Unlock()

	full, err := s.mb.FetchMessage(ctx, token, id)

	s.mu.Lock()
	if gen != s.gen || selGen != s.selGen {
		s.mu.Unlock()
		return nil
	}
	switch {
	case err == nil:
		s.selection = &Selection{Message: full}
	case idx >= 0:
		s.selection = &Selection{Message: summary, Degraded: true}
	default:
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Back clears the selection without refetching.
func (s *Sync) Back() {
	s.mu.Lock()
	s.selGen++
	s.selection = nil
	s.mu.Unlock()
	s.notify()
}

// Mount marks the inbox as on screen. An active mailbox is refreshed
// immediately and polled while auto-refresh is on.
func (s *Sync) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = true
	active := s.status == Active
	s.reconcile()
	s.mu.Unlock()
	s.notify()

	if active {
		_ = s.Refresh(ctx)
	}
}

// Unmount takes the inbox off screen, stopping the timer and clearing the
// selection. Messages are kept.
func (s *Sync) Unmount() {
	s.mu.Lock()
	s.mounted = false
	s.selGen++
	s.selection = nil
	s.reconcile()
	s.mu.Unlock()
	s.notify()
}

// SetAutoRefresh turns polling on or off. Turning it on refreshes at once.
func (s *Sync) SetAutoRefresh(ctx context.Context, on bool) {
	s.mu.Lock()
	if s.auto == on {
		s.mu.Unlock()
		return
	}
	s.auto = on
	now := on && s.mounted && s.status == Active
	s.reconcile()
	s.mu.Unlock()
	s.notify()

	if now {
		_ = s.Refresh(ctx)
	}
}

// Snapshot returns a copy of the current state.
func (s *Sync) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Status:      s.status,
		Account:     s.account,
		CreateErr:   s.createErr,
		Messages:    slices.Clone(s.messages),
		ListErr:     s.listErr,
		Loading:     s.inflight > 0,
		AutoRefresh: s.auto,
		Mounted:     s.mounted,
		Polling:     s.handle != nil,
	}
	if s.selection != nil {
		sel := *s.selection
		st.Selection = &sel
	}
	return st
}

// Close stops polling and cancels tick-driven refreshes.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
	s.mu.Unlock()
	s.cancel()
}

// reconcile starts or stops the timer so it runs exactly when the mailbox
// is active, mounted and auto-refresh is on. Callers hold s.mu.
func (s *Sync) reconcile() {
	want := s.status == Active && s.auto && s.mounted
	switch {
	case want && s.handle == nil:
		s.handle = s.sched.Start(s.interval, s.tick)
	case !want && s.handle != nil:
		s.handle.Stop()
		s.handle = nil
	}
}

// tick must not block: Handle.Stop waits for it while s.mu is held.
func (s *Sync) tick() {
	go func() { _ = s.Refresh(s.ctx) }()
}
