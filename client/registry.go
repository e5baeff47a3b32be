package client

import (
	"sort"
	"sync"

	wberr "whiteboard/internal/errors"
	"whiteboard/protocol"
)

// Key names a request category.  Replies carry no request id, so at
// most one request per key may be outstanding on a connection.
type Key string

// Fixed keys.  Parameterised keys come from UsersKey and NewBoardKey.
const (
	KeyBoards    Key = "boards"
	KeyCheckUser Key = "checkUser"
	KeyExit      Key = "exit"
)

// UsersKey is the key for a users request about board.
func UsersKey(board string) Key { return Key("users:" + board) }

// NewBoardKey is the key for a request to create board name.
func NewBoardKey(name string) Key { return Key("newBoard:" + name) }

// Registry tracks outstanding requests by key.  An entry lives from
// Acquire to Release, so the registry holds only what is in flight no
// matter how many distinct board names have been requested.  Stale
// fallbacks come from the session, not from old trackers.
type Registry struct {
	mu       sync.Mutex
	trackers map[Key]*Tracker[protocol.Message]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[Key]*Tracker[protocol.Message])}
}

// Acquire registers a fresh tracker for k.  If a request for k is
// already outstanding it fails with ErrRequestPending and the caller
// must not send.
func (r *Registry) Acquire(k Key) (*Tracker[protocol.Message], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.trackers[k]; busy {
		return nil, wberr.ErrRequestPending
	}
	tr := NewTracker[protocol.Message]()
	r.trackers[k] = tr
	return tr, nil
}

// Complete delivers reply m to the outstanding request for k.  It
// reports false when nothing was waiting, i.e. the reply was unsolicited
// or arrived after its request gave up.
func (r *Registry) Complete(k Key, m protocol.Message) bool {
	r.mu.Lock()
	tr := r.trackers[k]
	r.mu.Unlock()
	if tr == nil {
		return false
	}
	return tr.Complete(m)
}

// Release removes the tracker for k so it may be requested again.
func (r *Registry) Release(k Key) {
	r.mu.Lock()
	delete(r.trackers, k)
	r.mu.Unlock()
}

// Pending returns the outstanding keys in sorted order.
func (r *Registry) Pending() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, 0, len(r.trackers))
	for k := range r.trackers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
