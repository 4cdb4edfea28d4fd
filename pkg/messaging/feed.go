package messaging

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrSlowSubscriber = errors.New("messaging: subscriber is not keeping up")
	ErrFeedClosed     = errors.New("messaging: feed is closed")
)

// Feed fans scores out to subscriber channels. Publishing never blocks a
// job: a score that does not fit into a subscriber's buffer is dropped
// for that subscriber and reported.
type Feed struct {
	mu     sync.Mutex
	subs   []chan EpochScore
	closed bool
}

func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe returns a channel receiving every score published after the
// call, buffered for up to buffer scores. The channel is closed by the
// returned cancel function or by Close.
func (f *Feed) Subscribe(buffer int) (<-chan EpochScore, func()) {
	ch := make(chan EpochScore, buffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs = append(f.subs, ch)
	return ch, func() { f.cancel(ch) }
}

func (f *Feed) cancel(ch chan EpochScore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subs {
		if sub == ch {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish delivers score to every subscriber with room for it
func (f *Feed) Publish(score EpochScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	dropped := 0
	for _, ch := range f.subs {
		select {
		case ch <- score:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return errors.Wrapf(ErrSlowSubscriber, "%d of %d subscribers dropped epoch %d of %s",
			dropped, len(f.subs), score.Epoch, score.Job)
	}
	return nil
}

// Close ends every subscription
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}
