package inbox

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned handle is stopped.
type Scheduler interface {
	Start(interval time.Duration, fn func()) Handle
}

// Handle stops a scheduled task. Stop returns once fn will not be called
// again and is safe to call more than once.
type Handle interface {
	Stop()
}

// TickerScheduler schedules with a time.Ticker.
type TickerScheduler struct{}

// Start launches a goroutine that calls fn on every tick.
func (TickerScheduler) Start(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	t := time.NewTicker(interval)
	go func() {
		defer close(h.exited)
		defer t.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-t.C:
				fn()
			}
		}
	}()

	return h
}

type tickerHandle struct {
	once   sync.Once
	done   chan struct{}
	exited chan struct{}
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() { close(h.done) })
	<-h.exited
}
