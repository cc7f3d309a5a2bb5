// Package channels holds small helpers for pushing values to observers
// without letting a slow reader stall the producer.
package channels

import (
	"errors"
	"time"
)

var (
	ErrChannelFull    = errors.New("channel full")
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("channel send timed out")
)

// SendNonBlock attempts to send a message without blocking.
// Returns error if the channel is full or closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendLatest delivers msg, evicting one stale buffered value if the channel is
// full. Intended for buffered state channels where only the newest value
// matters. It never blocks.
func SendLatest[T any](ch chan T, msg T) error {
	if err := SendNonBlock[T](ch, msg); !errors.Is(err, ErrChannelFull) {
		return err
	}
	select {
	case <-ch:
	default:
	}
	return SendNonBlock[T](ch, msg)
}

// SendWithTimeout sends a message with a timeout.
// Returns error if the timeout expires or channel is closed.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case ch <- msg:
		return nil
	case <-t.C:
		return ErrChannelTimeout
	}
}
