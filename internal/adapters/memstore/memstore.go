// Package memstore is an in-memory implementation of the collaborator stores.
// It backs local runs and scenario tests; a real deployment plugs its own
// persistence layer into the same interfaces.
package memstore

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dkeye/Chathub/internal/core"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newULID returns a time-sortable id; message ids sort in send order.
func newULID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// Clock returns the current time. Tests swap it for a fixed one.
type Clock func() time.Time

// New returns a fresh set of stores sharing one clock.
func New(clock Clock) core.Stores {
	if clock == nil {
		clock = time.Now
	}
	convs := NewConversations(clock)
	return core.Stores{
		Messages:       NewMessages(clock),
		Conversations:  convs,
		FriendRequests: NewFriendRequests(clock),
		Groups:         NewGroups(clock, convs),
		CallRecords:    NewCallRecords(),
	}
}
