package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestConversationStore_GetOrCreate_New(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryConversationStore(WithClock(clock.Now))

	state := store.GetOrCreate("+15550001")

	assert.Equal(t, "+15550001", state.PhoneNumber)
	assert.False(t, state.WaitingForEmail)
	assert.Empty(t, state.PendingVoiceNoteURL)
	assert.Equal(t, clock.Now(), state.LastUpdated)
	assert.Equal(t, 1, store.Count())
}

func TestConversationStore_GetOrCreate_ReturnsCopy(t *testing.T) {
	store := NewMemoryConversationStore()

	state := store.GetOrCreate("+15550001")
	state.AwaitEmail("https://media/1")

	again := store.GetOrCreate("+15550001")
	assert.True(t, again.IsIdle(), "mutating a returned copy must not touch the store")
}

func TestConversationStore_SaveAndReload(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryConversationStore(WithClock(clock.Now))

	state := store.GetOrCreate("+15550001")
	state.AwaitEmail("https://media/1")
	clock.Advance(time.Minute)
	store.Save(state)

	got := store.GetOrCreate("+15550001")
	assert.True(t, got.WaitingForEmail)
	assert.Equal(t, "https://media/1", got.PendingVoiceNoteURL)
	assert.Equal(t, clock.Now(), got.LastUpdated)
	assert.Greater(t, got.Version, state.Version)
}

func TestConversationStore_StaleStateIsFresh(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryConversationStore(WithClock(clock.Now))

	state := store.GetOrCreate("+15550001")
	state.AwaitEmail("https://media/1")
	store.Save(state)

	clock.Advance(24*time.Hour + time.Second)

	got := store.GetOrCreate("+15550001")
	assert.True(t, got.IsIdle())
	assert.Equal(t, clock.Now(), got.LastUpdated)
}

func TestConversationStore_NotStaleAtExactlyWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryConversationStore(WithClock(clock.Now))

	state := store.GetOrCreate("+15550001")
	state.AwaitEmail("https://media/1")
	store.Save(state)

	clock.Advance(24 * time.Hour)

	got := store.GetOrCreate("+15550001")
	assert.True(t, got.WaitingForEmail)
}

func TestConversationStore_Update(t *testing.T) {
	store := NewMemoryConversationStore()
	before := store.GetOrCreate("+15550001")

	after := store.Update("+15550001", func(s *models.ConversationState) bool {
		s.AwaitEmail("https://media/1")
		return true
	})
	assert.True(t, after.WaitingForEmail)
	assert.Equal(t, before.Version+1, after.Version)

	unchanged := store.Update("+15550001", func(s *models.ConversationState) bool {
		return false
	})
	assert.Equal(t, after.Version, unchanged.Version)
	assert.Equal(t, "https://media/1", unchanged.PendingVoiceNoteURL)
}

func TestConversationStore_UpdateDiscardsRejectedChanges(t *testing.T) {
	store := NewMemoryConversationStore()

	store.Update("+15550001", func(s *models.ConversationState) bool {
		s.AwaitEmail("https://media/1")
		return false
	})

	assert.True(t, store.GetOrCreate("+15550001").IsIdle())
}

func TestConversationStore_DeleteAndCount(t *testing.T) {
	store := NewMemoryConversationStore(WithShards(4))
	for i := 0; i < 10; i++ {
		store.GetOrCreate(fmt.Sprintf("+1555000%d", i))
	}
	require.Equal(t, 10, store.Count())

	store.Delete("+15550003")
	assert.Equal(t, 9, store.Count())
}

func TestConversationStore_PurgeStale(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryConversationStore(WithClock(clock.Now), WithStaleAfter(time.Hour))

	store.GetOrCreate("+15550001")
	clock.Advance(30 * time.Minute)
	store.GetOrCreate("+15550002")
	clock.Advance(31 * time.Minute)

	purged := store.PurgeStale(clock.Now())

	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, store.Count())
}

func TestConversationStore_ConcurrentUpdatesSameSender(t *testing.T) {
	store := NewMemoryConversationStore()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Update("+15550001", func(s *models.ConversationState) bool {
				if i%2 == 0 {
					s.AwaitEmail(fmt.Sprintf("https://media/%d", i))
				} else {
					s.Reset()
				}
				return true
			})
		}(i)
	}
	wg.Wait()

	final := store.GetOrCreate("+15550001")
	assert.Equal(t, final.WaitingForEmail, final.PendingVoiceNoteURL != "")
	assert.Equal(t, uint64(workers), final.Version)
}

func TestConversationStore_ConcurrentSenders(t *testing.T) {
	store := NewMemoryConversationStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := fmt.Sprintf("+1555%04d", i)
			store.Update(phone, func(s *models.ConversationState) bool {
				s.AwaitEmail("https://media/" + phone)
				return true
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, store.Count())
	got := store.GetOrCreate("+15550042")
	assert.Equal(t, "https://media/+15550042", got.PendingVoiceNoteURL)
}
