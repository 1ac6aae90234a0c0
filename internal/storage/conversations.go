package storage

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
)

const defaultShardCount = 32

type conversationShard struct {
	mu     sync.Mutex
	states map[string]*models.ConversationState
}

// MemoryConversationStore is an in-memory ConversationStore split into
// independently locked shards keyed by a hash of the phone number.
type MemoryConversationStore struct {
	shards     []*conversationShard
	staleAfter time.Duration
	now        func() time.Time
}

// ConversationStoreOption customizes a MemoryConversationStore
type ConversationStoreOption func(*MemoryConversationStore)

// WithShards sets the number of lock shards
func WithShards(n int) ConversationStoreOption {
	return func(s *MemoryConversationStore) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

// WithStaleAfter sets how long an untouched conversation stays valid
func WithStaleAfter(d time.Duration) ConversationStoreOption {
	return func(s *MemoryConversationStore) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ConversationStoreOption {
	return func(s *MemoryConversationStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryConversationStore creates an empty conversation store
func NewMemoryConversationStore(opts ...ConversationStoreOption) *MemoryConversationStore {
	s := &MemoryConversationStore{
		shards:     newShards(defaultShardCount),
		staleAfter: models.DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*conversationShard {
	shards := make([]*conversationShard, n)
	for i := range shards {
		shards[i] = &conversationShard{states: make(map[string]*models.ConversationState)}
	}
	return shards
}

func (s *MemoryConversationStore) shardFor(phone string) *conversationShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// loadLocked returns the live state for phone, replacing a missing or stale one. Caller holds sh.mu.
func (s *MemoryConversationStore) loadLocked(sh *conversationShard, phone string) *models.ConversationState {
	now := s.now()
	state, ok := sh.states[phone]
	if !ok || state.IsStale(now, s.staleAfter) {
		fresh := models.NewConversationState(phone, now)
		if ok {
			fresh.Version = state.Version + 1
		}
		state = &fresh
		sh.states[phone] = state
	}
	return state
}

func (s *MemoryConversationStore) GetOrCreate(phone string) models.ConversationState {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return *s.loadLocked(sh, phone)
}

func (s *MemoryConversationStore) Save(state models.ConversationState) {
	sh := s.shardFor(state.PhoneNumber)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var version uint64
	if existing, ok := sh.states[state.PhoneNumber]; ok {
		version = existing.Version
	}
	state.Version = version + 1
	state.LastUpdated = s.now()
	sh.states[state.PhoneNumber] = &state
}

func (s *MemoryConversationStore) Update(phone string, fn func(state *models.ConversationState) bool) models.ConversationState {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current := s.loadLocked(sh, phone)
	next := *current
	if fn(&next) {
		next.PhoneNumber = phone
		next.Version = current.Version + 1
		next.LastUpdated = s.now()
		sh.states[phone] = &next
		return next
	}
	return *current
}

func (s *MemoryConversationStore) Delete(phone string) {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.states, phone)
}

func (s *MemoryConversationStore) Count() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.states)
		sh.mu.Unlock()
	}
	return total
}

func (s *MemoryConversationStore) PurgeStale(now time.Time) int {
	purged := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for phone, state := range sh.states {
			if state.IsStale(now, s.staleAfter) {
				delete(sh.states, phone)
				purged++
			}
		}
		sh.mu.Unlock()
	}
	return purged
}
