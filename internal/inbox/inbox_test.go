package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zarlcorp/zmask/internal/mailtm"
)

type listReply struct {
	msgs []mailtm.Message
	err  error
	gate chan struct{} // reply is held until closed
}

type fakeMailbox struct {
	mu         sync.Mutex
	account    mailtm.Account
	createErr  error
	createGate chan struct{}
	creates    int
	lists      []listReply
	listCalls  int
	full       map[string]mailtm.Message
	fetchErr   error
	fetchGate  chan struct{}
	fetches    int
}

func (f *fakeMailbox) CreateRandomAccount(ctx context.Context) (mailtm.Account, error) {
	f.mu.Lock()
	f.creates++
	gate := f.createGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return f.account, f.createErr
}

func (f *fakeMailbox) ListMessages(ctx context.Context, token string) ([]mailtm.Message, error) {
	f.mu.Lock()
	i := f.listCalls
	f.listCalls++
	var r listReply
	if len(f.lists) > 0 {
		r = f.lists[min(i, len(f.lists)-1)]
	}
	f.mu.Unlock()

	if r.gate != nil {
		<-r.gate
	}
	return r.msgs, r.err
}

func (f *fakeMailbox) FetchMessage(ctx context.Context, token, id string) (mailtm.Message, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.fetchGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return mailtm.Message{}, f.fetchErr
	}
	m, ok := f.full[id]
	if !ok {
		return mailtm.Message{}, errors.New("not found")
	}
	return m, nil
}

func (f *fakeMailbox) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// fakeScheduler records handles and fires ticks on demand.
type fakeScheduler struct {
	mu      sync.Mutex
	handles []*fakeHandle
}

type fakeHandle struct {
	interval time.Duration
	fn       func()
	stopped  bool
}

func (h *fakeHandle) Stop() { h.stopped = true }

func (s *fakeScheduler) Start(interval time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &fakeHandle{interval: interval, fn: fn}
	s.handles = append(s.handles, h)
	return h
}

func (s *fakeScheduler) live() []*fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeHandle
	for _, h := range s.handles {
		if !h.stopped {
			out = append(out, h)
		}
	}
	return out
}

func msgs(ids ...string) []mailtm.Message {
	out := make([]mailtm.Message, len(ids))
	for i, id := range ids {
		out[i] = mailtm.Message{ID: id, Subject: "subject " + id, Intro: "intro " + id}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestSync(t *testing.T, mb *fakeMailbox) (*Sync, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	s := New(mb, WithScheduler(sched), WithInterval(time.Second))
	t.Cleanup(s.Close)
	return s, sched
}

// activate provisions the mailbox and mounts the inbox, which runs the first
// listing.
func activate(t *testing.T, s *Sync) {
	t.Helper()
	if _, err := s.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	s.Mount(context.Background())
}

func activeMailbox() *fakeMailbox {
	return &fakeMailbox{
		account: mailtm.Account{ID: "acc-1", Address: "mask1@x.io", Password: "pw", Token: "tok"},
		lists:   []listReply{{msgs: msgs("m1")}},
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Idle, "idle"},
		{Creating, "creating"},
		{Active, "active"},
		{Failed, "error"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestActivateSuccess(t *testing.T) {
	mb := activeMailbox()
	s, sched := newTestSync(t, mb)

	if got := s.Snapshot().Status; got != Idle {
		t.Fatalf("initial status = %v", got)
	}

	acct, err := s.Activate(context.Background())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if acct.Address != "mask1@x.io" {
		t.Errorf("returned account = %+v", acct)
	}

	st := s.Snapshot()
	if st.Status != Active {
		t.Errorf("status = %v, want active", st.Status)
	}
	if st.Account != acct {
		t.Errorf("stored account = %+v, want %+v", st.Account, acct)
	}
	if mb.calls() != 0 {
		t.Error("activation must not wait on a listing")
	}
	if st.Mounted || st.Polling || len(sched.handles) != 0 {
		t.Errorf("no timer until the inbox is mounted: %+v", st)
	}

	s.Mount(context.Background())

	st = s.Snapshot()
	if len(st.Messages) != 1 || st.Messages[0].ID != "m1" {
		t.Errorf("messages = %+v, want first refresh applied on mount", st.Messages)
	}
	if st.Loading {
		t.Error("loading should be false after refresh")
	}
	if live := sched.live(); len(live) != 1 || live[0].interval != time.Second {
		t.Errorf("expected one live timer at 1s, got %d", len(live))
	}
	if !st.Polling {
		t.Error("snapshot should report polling")
	}
}

func TestActivateReturnsBeforeListing(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	mb := activeMailbox()
	mb.lists = []listReply{{msgs: msgs("m1"), gate: gate}}
	s, sched := newTestSync(t, mb)

	// inbox already on screen: the first listing runs in the background
	s.Mount(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Activate(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("activate: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("activate blocked on a hung listing")
	}

	waitFor(t, func() bool { return mb.calls() == 1 })
	st := s.Snapshot()
	if st.Status != Active || !st.Loading {
		t.Errorf("want active with a listing in flight: %+v", st)
	}
	if len(sched.live()) != 1 {
		t.Error("mounted inbox should poll once active")
	}
}

func TestActivateFailure(t *testing.T) {
	mb := &fakeMailbox{createErr: mailtm.ErrNoDomainsAvailable}
	s, sched := newTestSync(t, mb)

	_, err := s.Activate(context.Background())
	if !errors.Is(err, mailtm.ErrNoDomainsAvailable) {
		t.Fatalf("err = %v", err)
	}

	st := s.Snapshot()
	if st.Status != Failed {
		t.Errorf("status = %v, want error", st.Status)
	}
	if !errors.Is(st.CreateErr, mailtm.ErrNoDomainsAvailable) {
		t.Errorf("create error not retained: %v", st.CreateErr)
	}
	if len(sched.handles) != 0 {
		t.Error("no timer expected after failed creation")
	}

	// retry from error is allowed
	mb.createErr = nil
	mb.account = mailtm.Account{ID: "a", Token: "t"}
	if _, err := s.Activate(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if st := s.Snapshot(); st.Status != Active || st.CreateErr != nil {
		t.Errorf("after retry: %v %v", st.Status, st.CreateErr)
	}
}

func TestActivateWhileBusy(t *testing.T) {
	mb := activeMailbox()
	mb.createGate = make(chan struct{})
	s, _ := newTestSync(t, mb)

	done := make(chan error, 1)
	go func() {
		_, err := s.Activate(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return s.Snapshot().Status == Creating })

	if _, err := s.Activate(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second activate while creating: %v", err)
	}

	close(mb.createGate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if _, err := s.Activate(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("activate while active: %v", err)
	}
	if mb.creates != 1 {
		t.Errorf("account created %d times, want 1", mb.creates)
	}
}

func TestResetDuringCreation(t *testing.T) {
	mb := activeMailbox()
	mb.createGate = make(chan struct{})
	s, sched := newTestSync(t, mb)

	done := make(chan error, 1)
	go func() {
		_, err := s.Activate(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return s.Snapshot().Status == Creating })

	s.Reset()
	close(mb.createGate)

	if err := <-done; !errors.Is(err, ErrReset) {
		t.Errorf("activate after reset: %v", err)
	}
	st := s.Snapshot()
	if st.Status != Idle || st.Account != (mailtm.Account{}) {
		t.Errorf("late account must be dropped: %+v", st)
	}
	if len(sched.live()) != 0 {
		t.Error("no timer expected")
	}
}

func TestReset(t *testing.T) {
	mb := activeMailbox()
	s, sched := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	mb.full = map[string]mailtm.Message{"m1": {ID: "m1", Text: "body"}}
	if err := s.Open(ctx, "m1"); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	st := s.Snapshot()
	if st.Status != Idle {
		t.Errorf("status = %v", st.Status)
	}
	if st.Account != (mailtm.Account{}) || st.Messages != nil || st.Selection != nil || st.Mounted {
		t.Errorf("reset left state behind: %+v", st)
	}
	if len(sched.live()) != 0 {
		t.Error("timer must be stopped by reset")
	}
	if err := s.Refresh(ctx); !errors.Is(err, ErrInactive) {
		t.Errorf("refresh after reset: %v", err)
	}
}

func TestTimerFollowsMountAndAutoRefresh(t *testing.T) {
	mb := activeMailbox()
	s, sched := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	first := sched.live()
	if len(first) != 1 {
		t.Fatalf("live timers = %d, want 1", len(first))
	}

	s.SetAutoRefresh(ctx, false)
	if len(sched.live()) != 0 || !first[0].stopped {
		t.Fatal("auto-refresh off must stop the timer")
	}
	if len(s.Snapshot().Messages) != 1 {
		t.Error("messages should be kept when auto-refresh goes off")
	}

	before := mb.calls()
	s.SetAutoRefresh(ctx, true)
	if mb.calls() != before+1 {
		t.Error("turning auto-refresh on should refresh immediately")
	}
	if len(sched.live()) != 1 {
		t.Fatal("auto-refresh on must start a timer")
	}

	s.Unmount()
	if len(sched.live()) != 0 {
		t.Fatal("unmount must stop the timer")
	}
	if s.Snapshot().Polling {
		t.Error("snapshot should not report polling")
	}

	// mounting refreshes immediately even with auto-refresh off
	s.SetAutoRefresh(ctx, false)
	before = mb.calls()
	s.Mount(ctx)
	if mb.calls() != before+1 {
		t.Error("mount should refresh an active mailbox")
	}
	if len(sched.live()) != 0 {
		t.Error("no timer while auto-refresh is off")
	}

	// never more than one live handle
	for range 3 {
		s.SetAutoRefresh(ctx, true)
		s.SetAutoRefresh(ctx, false)
		s.SetAutoRefresh(ctx, true)
		if n := len(sched.live()); n != 1 {
			t.Fatalf("live timers = %d, want 1", n)
		}
	}
}

func TestTickRefreshes(t *testing.T) {
	mb := activeMailbox()
	mb.lists = []listReply{{msgs: msgs("m1")}, {msgs: msgs("m2", "m1")}}
	s, sched := newTestSync(t, mb)

	activate(t, s)
	sched.live()[0].fn()

	waitFor(t, func() bool { return len(s.Snapshot().Messages) == 2 })
	if got := s.Snapshot().Messages[0].ID; got != "m2" {
		t.Errorf("newest message = %q", got)
	}
}

func TestRefreshIdempotent(t *testing.T) {
	mb := activeMailbox()
	s, _ := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	a := s.Snapshot().Messages
	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	b := s.Snapshot().Messages

	if len(a) != len(b) || a[0].ID != b[0].ID {
		t.Errorf("unchanged mailbox gave different lists: %v vs %v", a, b)
	}
}

func TestRefreshErrorKeepsMessages(t *testing.T) {
	mb := activeMailbox()
	boom := errors.New("HTTP 500: upstream")
	mb.lists = []listReply{{msgs: msgs("m1")}, {err: boom}, {msgs: msgs("m1")}}
	s, _ := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	if err := s.Refresh(ctx); !errors.Is(err, boom) {
		t.Fatalf("refresh err = %v", err)
	}

	st := s.Snapshot()
	if !errors.Is(st.ListErr, boom) {
		t.Errorf("list error = %v", st.ListErr)
	}
	if len(st.Messages) != 1 {
		t.Error("messages should survive a failed refresh")
	}

	s.Refresh(ctx)
	if s.Snapshot().ListErr != nil {
		t.Error("successful refresh should clear the list error")
	}
}

func TestStaleRefreshDiscarded(t *testing.T) {
	gate := make(chan struct{})
	mb := activeMailbox()
	mb.lists = []listReply{
		{msgs: msgs("m1")},
		{msgs: msgs("old"), gate: gate},
		{msgs: msgs("new", "m1")},
	}
	s, _ := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)

	slow := make(chan error, 1)
	go func() { slow <- s.Refresh(ctx) }()
	waitFor(t, func() bool { return mb.calls() == 2 })

	if !s.Snapshot().Loading {
		t.Error("loading should be set while a refresh is in flight")
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	close(gate)
	<-slow

	st := s.Snapshot()
	if len(st.Messages) != 2 || st.Messages[0].ID != "new" {
		t.Errorf("stale reply overwrote newer list: %+v", st.Messages)
	}
	if st.Loading {
		t.Error("loading should clear once both refreshes land")
	}
}

func TestRefreshAfterResetDropped(t *testing.T) {
	gate := make(chan struct{})
	mb := activeMailbox()
	mb.lists = []listReply{{msgs: msgs("m1")}, {msgs: msgs("late"), gate: gate}}
	s, _ := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	done := make(chan struct{})
	go func() {
		s.Refresh(ctx)
		close(done)
	}()
	waitFor(t, func() bool { return mb.calls() == 2 })

	s.Reset()
	close(gate)
	<-done

	if st := s.Snapshot(); st.Messages != nil || st.Loading {
		t.Errorf("in-flight result leaked past reset: %+v", st)
	}
}

func TestOpenAndBack(t *testing.T) {
	mb := activeMailbox()
	mb.full = map[string]mailtm.Message{"m1": {ID: "m1", Subject: "subject m1", HTML: []string{"<p>hi</p>"}}}
	s, _ := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	if err := s.Open(ctx, "m1"); err != nil {
		t.Fatal(err)
	}

	sel := s.Snapshot().Selection
	if sel == nil || sel.Degraded || len(sel.Message.HTML) != 1 {
		t.Fatalf("selection = %+v", sel)
	}

	before := mb.calls()
	s.Back()
	if s.Snapshot().Selection != nil {
		t.Error("back should clear selection")
	}
	if mb.calls() != before {
		t.Error("back must not refetch")
	}
}

func TestOpenDegraded(t *testing.T) {
	mb := activeMailbox()
	mb.fetchErr = errors.New("HTTP 502: bad gateway")
	s, _ := newTestSync(t, mb)
	ctx := context.Background()

	activate(t, s)
	if err := s.Open(ctx, "m1"); err != nil {
		t.Fatalf("degraded open should not fail: %v", err)
	}

	sel := s.Snapshot().Selection
	if sel == nil || !sel.Degraded {
		t.Fatalf("selection = %+v, want degraded", sel)
	}
	if sel.Message.Intro != "intro m1" {
		t.Errorf("summary not used: %+v", sel.Message)
	}

	if err := s.Open(ctx, "missing"); err == nil {
		t.Error("unknown id with failed fetch should error")
	}
}

func TestLateOpenDropped(t *testing.T) {
	tests := []struct {
		name  string
		leave func(s *Sync)
	}{
		{"back", (*Sync).Back},
		{"unmount", (*Sync).Unmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := activeMailbox()
			mb.full = map[string]mailtm.Message{"m1": {ID: "m1", Text: "body"}}
			mb.fetchGate = make(chan struct{})
			s, _ := newTestSync(t, mb)
			activate(t, s)

			done := make(chan error, 1)
			go func() { done <- s.Open(context.Background(), "m1") }()
			waitFor(t, func() bool {
				mb.mu.Lock()
				defer mb.mu.Unlock()
				return mb.fetches == 1
			})

			tt.leave(s)
			close(mb.fetchGate)
			if err := <-done; err != nil {
				t.Fatalf("open: %v", err)
			}

			if sel := s.Snapshot().Selection; sel != nil {
				t.Errorf("fetch that landed after %s selected %+v", tt.name, sel.Message)
			}
		})
	}
}

func TestNewerOpenWins(t *testing.T) {
	mb := activeMailbox()
	mb.lists = []listReply{{msgs: msgs("m1", "m2")}}
	mb.full = map[string]mailtm.Message{"m1": {ID: "m1"}, "m2": {ID: "m2"}}
	first := make(chan struct{})
	mb.fetchGate = first
	s, _ := newTestSync(t, mb)
	activate(t, s)

	slow := make(chan error, 1)
	go func() { slow <- s.Open(context.Background(), "m1") }()
	waitFor(t, func() bool {
		mb.mu.Lock()
		defer mb.mu.Unlock()
		return mb.fetches == 1
	})

	mb.mu.Lock()
	mb.fetchGate = nil
	mb.mu.Unlock()
	if err := s.Open(context.Background(), "m2"); err != nil {
		t.Fatal(err)
	}

	close(first)
	if err := <-slow; err != nil {
		t.Fatal(err)
	}

	if sel := s.Snapshot().Selection; sel == nil || sel.Message.ID != "m2" {
		t.Errorf("selection = %+v, want m2", sel)
	}
}

func TestOpenInactive(t *testing.T) {
	s, _ := newTestSync(t, &fakeMailbox{})
	if err := s.Open(context.Background(), "m1"); !errors.Is(err, ErrInactive) {
		t.Errorf("err = %v", err)
	}
}

func TestNotify(t *testing.T) {
	var mu sync.Mutex
	var n int
	mb := activeMailbox()
	s := New(mb, WithScheduler(&fakeScheduler{}), WithNotify(func() {
		mu.Lock()
		n++
		mu.Unlock()
	}))
	defer s.Close()

	activate(t, s)

	mu.Lock()
	defer mu.Unlock()
	if n == 0 {
		t.Error("expected change notifications")
	}
}

func TestTickerScheduler(t *testing.T) {
	var mu sync.Mutex
	var ticks int
	h := TickerScheduler{}.Start(time.Millisecond, func() {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks >= 3
	})
	h.Stop()

	mu.Lock()
	after := ticks
	mu.Unlock()
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if ticks != after {
		t.Errorf("ticked %d times after Stop returned", ticks-after)
	}

	h.Stop() // second stop is a no-op
}
