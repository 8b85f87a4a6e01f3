package assessment

import (
	"fmt"
	"sync"
	"time"

	"trainhub/internal/model"
)

const (
	secondsPerChoice   = 60  // mcq, unset or unknown type
	secondsPerFreeForm = 300 // fill, numerical
	lowTimeThreshold   = 120
)

// Budget is the time allotted to a quiz, a pure function of its
// question-type mix
func Budget(questions []model.QuizQuestion) int {
	total := 0
	for _, q := range questions {
		if q.IsMCQ() {
			total += secondsPerChoice
		} else {
			total += secondsPerFreeForm
		}
	}
	return total
}

// FormatRemaining renders seconds as m:ss
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// IsLowTime reports whether the remaining time should be shown as a warning
func IsLowTime(seconds int) bool {
	return seconds < lowTimeThreshold
}

// TickSource delivers the countdown's ticks
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// NewTicker creates a tick source; swapped out in tests
type NewTicker func() TickSource

type secondTicker struct {
	t *time.Ticker
}

// SecondTicker ticks once per second
func SecondTicker() TickSource {
	return &secondTicker{t: time.NewTicker(time.Second)}
}

func (s *secondTicker) C() <-chan time.Time { return s.t.C }
func (s *secondTicker) Stop()               { s.t.Stop() }

// Countdown is a cancellable countdown handle. It decrements once per
// tick, reports every decrement and fires onExpire exactly once at zero.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	ticks     TickSource
	onTick    func(remaining int)
	onExpire  func()

	started  bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewCountdown creates a stopped countdown of seconds
func NewCountdown(seconds int, ticks TickSource, onTick func(int), onExpire func()) *Countdown {
	return &Countdown{
		remaining: seconds,
		ticks:     ticks,
		onTick:    onTick,
		onExpire:  onExpire,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins ticking. Starting twice or after Stop does nothing.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped() {
		return
	}
	c.started = true
	go c.run()
}

// Stop cancels the countdown. Safe to call repeatedly and from inside
// the countdown's own callbacks.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		c.ticks.Stop()
	}
}

// Wait blocks until the countdown goroutine has exited
func (c *Countdown) Wait() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

// Remaining returns the seconds left
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

func (c *Countdown) run() {
	defer close(c.done)
	defer c.ticks.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-c.ticks.C():
		}
		if c.stopped() {
			return
		}

		c.mu.Lock()
		if c.remaining > 0 {
			c.remaining--
		}
		remaining := c.remaining
		c.mu.Unlock()

		if c.onTick != nil {
			c.onTick(remaining)
		}
		if remaining == 0 {
			if c.onExpire != nil {
				c.onExpire()
			}
			return
		}
	}
}
