package session

import (
	"context"
	"time"
)

// Run drives m from frames until it terminates, for use without an
// interactive display: the title and thank-you screens are confirmed
// automatically. Cancelling ctx quits the session and returns ctx.Err().
// onFrame, when non-nil, is called after every handled frame.
func Run(ctx context.Context, m *Machine, frames <-chan time.Time, onFrame func(*Machine)) error {
	for m.State() != StateTerminated {
		select {
		case <-ctx.Done():
			m.Quit(time.Now())
			return ctx.Err()
		case now := <-frames:
			if err := ctx.Err(); err != nil {
				m.Quit(now)
				return err
			}
			switch m.State() {
			case StateTitle:
				m.Begin(now)
			case StateInstructions:
				m.Back()
			case StateThankYou:
				m.Confirm(now)
			default:
				m.Tick(now)
			}
			if onFrame != nil {
				onFrame(m)
			}
		}
	}
	return nil
}
