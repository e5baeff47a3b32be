package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wberr "whiteboard/internal/errors"
	"whiteboard/protocol"
)

func TestRegistryRejectsOverlappingKey(t *testing.T) {
	r := NewRegistry()
	_, err := r.Acquire(NewBoardKey("b1"))
	require.NoError(t, err)

	_, err = r.Acquire(NewBoardKey("b1"))
	assert.ErrorIs(t, err, wberr.ErrRequestPending)

	// Other keys are independent.
	_, err = r.Acquire(NewBoardKey("b2"))
	assert.NoError(t, err)
	_, err = r.Acquire(KeyBoards)
	assert.NoError(t, err)

	r.Release(NewBoardKey("b1"))
	_, err = r.Acquire(NewBoardKey("b1"))
	assert.NoError(t, err)
}

func TestRegistryCompleteDelivers(t *testing.T) {
	r := NewRegistry()
	tr, err := r.Acquire(UsersKey("room1"))
	require.NoError(t, err)

	reply := protocol.UsersReply{Board: "room1", Users: []string{"alice"}}
	assert.True(t, r.Complete(UsersKey("room1"), reply))

	v, timedOut := tr.Await(time.Second)
	assert.False(t, timedOut)
	assert.Equal(t, reply, v)
}

func TestRegistryUnsolicitedReply(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Complete(KeyBoards, protocol.BoardsReply{}))

	_, err := r.Acquire(KeyBoards)
	require.NoError(t, err)
	r.Release(KeyBoards)
	assert.False(t, r.Complete(KeyBoards, protocol.BoardsReply{}), "late reply after release")
}

func TestRegistryReleaseForgetsTracker(t *testing.T) {
	r := NewRegistry()
	tr, err := r.Acquire(KeyBoards)
	require.NoError(t, err)
	r.Complete(KeyBoards, protocol.BoardsReply{Boards: []string{"a"}})
	r.Release(KeyBoards)

	tr2, err := r.Acquire(KeyBoards)
	require.NoError(t, err)
	assert.NotSame(t, tr, tr2)

	// A new request starts empty; it never sees the previous reply.
	v, timedOut := tr2.Await(10 * time.Millisecond)
	assert.True(t, timedOut)
	assert.Nil(t, v)
}

func TestRegistryDoesNotGrowWithDistinctKeys(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 1000; i++ {
		k := NewBoardKey(fmt.Sprintf("board%d", i))
		_, err := r.Acquire(k)
		require.NoError(t, err)
		r.Complete(k, protocol.NewBoardResult{Name: fmt.Sprintf("board%d", i), Successful: true})
		r.Release(k)
	}
	assert.Empty(t, r.Pending())
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Empty(t, r.trackers)
}

func TestRegistryPendingSorted(t *testing.T) {
	r := NewRegistry()
	for _, k := range []Key{KeyExit, KeyBoards, UsersKey("x"), KeyCheckUser} {
		_, err := r.Acquire(k)
		require.NoError(t, err)
	}
	assert.Equal(t, []Key{KeyBoards, KeyCheckUser, KeyExit, UsersKey("x")}, r.Pending())
}
