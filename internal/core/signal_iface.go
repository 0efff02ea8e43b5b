package core

import "errors"

// Frame is one serialized outbound event.
type Frame []byte

// ConnID identifies a single transport connection for its whole life.
type ConnID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts the messaging transport of one connection.
// TrySend must never block: it enqueues into the connection's own outbound
// queue or fails with ErrBackpressure / ErrConnClosed.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	TrySend(Frame) error
	Close()
}
