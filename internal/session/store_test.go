// ABOUTME: Tests for the in-memory conversation store
// ABOUTME: Validates lazy creation, snapshot reads, per-key serialization, and parallel keys

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get(Key{RoomID: "!room", UserID: "@user"})
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_UpdateCreates(t *testing.T) {
	s := NewMemoryStore()
	key := Key{RoomID: "!room", UserID: "@user"}

	err := s.Update(key, func(c *Conversation) error {
		assert.Equal(t, StateMain, c.State)
		assert.True(t, c.Data.Empty())
		c.State = StateChoosingCategory
		c.Data.PendingSourceURL = "https://example.com/a.torrent"
		return nil
	})
	require.NoError(t, err)

	conv, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, StateChoosingCategory, conv.State)
	assert.Equal(t, "https://example.com/a.torrent", conv.Data.PendingSourceURL)
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	s := NewMemoryStore()
	key := Key{RoomID: "!room", UserID: "@user"}

	require.NoError(t, s.Update(key, func(c *Conversation) error {
		c.State = StateChoosingAction
		return nil
	}))

	conv, ok := s.Get(key)
	require.True(t, ok)
	conv.State = StateMain // mutating the snapshot must not touch the store

	stored, _ := s.Get(key)
	assert.Equal(t, StateChoosingAction, stored.State)
}

func TestMemoryStore_SerializesPerKey(t *testing.T) {
	s := NewMemoryStore()
	key := Key{RoomID: "!room", UserID: "@user"}

	// Many concurrent increments through Update; with per-key locking the
	// final count must be exact.
	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(key, func(c *Conversation) error {
				c.Data.TargetItemID++
				return nil
			})
		}()
	}
	wg.Wait()

	conv, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, int64(n), conv.Data.TargetItemID)
}

func TestMemoryStore_DistinctKeysIndependent(t *testing.T) {
	s := NewMemoryStore()
	a := Key{RoomID: "!a", UserID: "@u"}
	b := Key{RoomID: "!b", UserID: "@u"}

	// Hold a's lock while updating b; Update(b) must not deadlock.
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Update(a, func(c *Conversation) error {
			close(done)
			<-release
			return nil
		})
	}()
	<-done

	require.NoError(t, s.Update(b, func(c *Conversation) error {
		c.State = StatePickingSource
		return nil
	}))
	close(release)

	conv, ok := s.Get(b)
	require.True(t, ok)
	assert.Equal(t, StatePickingSource, conv.State)
}

func TestData_EmptyAndFacts(t *testing.T) {
	var d Data
	assert.True(t, d.Empty())
	assert.Equal(t, "", d.Facts())

	d.PendingSourceURL = "https://example.com/a.torrent"
	d.Category = "Movie"
	assert.False(t, d.Empty())
	assert.Contains(t, d.Facts(), "torrent_url - https://example.com/a.torrent")
	assert.Contains(t, d.Facts(), "category - Movie")
}

func TestConversation_Reset(t *testing.T) {
	c := Conversation{
		State: StateConfirmingRemoval,
		Data:  Data{TargetItemID: 7, RequestedOp: "delete"},
	}
	c.Reset()
	assert.Equal(t, StateMain, c.State)
	assert.True(t, c.Data.Empty())
}
