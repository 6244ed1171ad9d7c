// Package chat – retrying sender.
//
// Message sends get a fixed-count linear-backoff retry: attempt, wait 1s,
// attempt, wait 2s, attempt, give up. No jitter and no circuit breaker;
// message volume is low and a stuck transport fails fast on each attempt.
// Failures are logged, never surfaced to handlers — callers treat Send as
// fire-and-forget.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// sendAttempts is the total number of delivery attempts per message.
const sendAttempts = 3

// Sender wraps a Client with the retry policy and a shared pacing limiter
// for bulk operations (broadcast, kick-all) so they respect transport rate
// limits.
type Sender struct {
	client Client
	pace   *rate.Limiter
	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSender constructs a Sender over client. Bulk sends are paced to
// roughly one message per 1.2 seconds.
func NewSender(client Client) *Sender {
	return &Sender{
		client: client,
		pace:   rate.NewLimiter(rate.Every(1200*time.Millisecond), 1),
		sleep:  sleepCtx,
	}
}

// Send delivers content to threadID with the retry policy. It never returns
// an error; on final failure the message is dropped and logged.
func (s *Sender) Send(ctx context.Context, content, threadID string) {
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if _, err := s.client.SendMessage(ctx, content, threadID); err == nil {
			return
		} else {
			lastErr = err
		}
		if attempt == sendAttempts {
			break
		}
		// Linear backoff: 1s after the first failure, 2s after the second.
		if err := s.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
			lastErr = err
			break
		}
	}
	log.Error().
		Err(lastErr).
		Str("thread_id", threadID).
		Int("attempts", sendAttempts).
		Msg("giving up on message send")
}

// SendPaced waits for the shared pacing limiter before sending. Used by
// bulk operations that iterate over many threads.
func (s *Sender) SendPaced(ctx context.Context, content, threadID string) {
	if err := s.pace.Wait(ctx); err != nil {
		return
	}
	s.Send(ctx, content, threadID)
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
