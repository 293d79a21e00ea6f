package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateGetDelete(t *testing.T) {
	var evicted []string
	s := NewStore(Options{Slots: 3}, WithOnEvict(func(id string) { evicted = append(evicted, id) }))
	defer s.Close()

	id, st := s.Create()
	require.NotEmpty(t, id)
	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Same(t, st, got)
	assert.Equal(t, 3, got.View().Slots)

	assert.True(t, s.Delete(id))
	assert.False(t, s.Delete(id))
	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{id}, evicted)
}

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore(Options{})
	defer s.Close()

	a := s.GetOrCreate("chat:1")
	b := s.GetOrCreate("chat:1")
	c := s.GetOrCreate("chat:2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, s.Len())
}

func TestStoreTTL(t *testing.T) {
	var mu sync.Mutex
	var evicted []string
	s := NewStore(Options{},
		WithTTL(time.Hour),
		WithCleanupInterval(time.Hour),
		WithOnEvict(func(id string) {
			mu.Lock()
			evicted = append(evicted, id)
			mu.Unlock()
		}),
	)
	defer s.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle, _ := s.Create()
	busy, _ := s.Create()

	now = now.Add(50 * time.Minute)
	_, err := s.Get(busy) // refreshes
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	_, err = s.Get(idle)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(busy)
	assert.NoError(t, err)

	s.cleanupExpired()
	assert.Equal(t, 1, s.Len())
	mu.Lock()
	assert.Equal(t, []string{idle}, evicted)
	mu.Unlock()

	// an expired id passed to GetOrCreate starts over
	now = now.Add(2 * time.Hour)
	old, _ := s.Get(busy)
	assert.Nil(t, old)
	fresh := s.GetOrCreate(busy)
	assert.NotNil(t, fresh)
}

func TestStoreCloseTwice(t *testing.T) {
	s := NewStore(Options{}, WithTTL(time.Minute))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
