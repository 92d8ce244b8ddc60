package notification

import (
	"context"
	"time"
)

// GateState is the rate gate's memory: when the last accepted send happened.
// The zero value means nothing has been sent yet.
type GateState struct {
	LastAccepted int64 // monotonic milliseconds
	Sent         bool
}

// ShouldSend decides whether a send at nowMillis may pass the gate.
//
// A send is accepted when nothing was sent before, or when strictly more than
// minIntervalMillis elapsed since the last accepted one. The returned state
// records nowMillis on accept and is unchanged on reject.
func ShouldSend(state GateState, nowMillis, minIntervalMillis int64) (bool, GateState) {
	if state.Sent && state.LastAccepted+minIntervalMillis >= nowMillis {
		return false, state
	}
	return true, GateState{LastAccepted: nowMillis, Sent: true}
}

// SharedGate extends the rate gate across processes.
// Implementations live in infra/ratelimit/.
type SharedGate interface {
	// Allow atomically checks and records a send for the shared key.
	Allow(ctx context.Context, minInterval time.Duration) (bool, error)
}

// Clock yields monotonic milliseconds.
type Clock interface {
	NowMillis() int64
}

type monotonicClock struct {
	epoch time.Time
}

// NewMonotonicClock returns a Clock measuring milliseconds since its creation.
// time.Since uses the monotonic reading, so wall clock jumps do not affect it.
func NewMonotonicClock() Clock {
	return monotonicClock{epoch: time.Now()}
}

func (c monotonicClock) NowMillis() int64 {
	return time.Since(c.epoch).Milliseconds()
}
