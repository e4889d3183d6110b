package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(clock clockwork.Clock) *Registry {
	return NewRegistry(RegistryConfig{
		IdleTimeout: time.Hour,
		SweepSpec:   "@every 1m",
		Clock:       clock,
	})
}

func TestRegistry_CreateGetDelete(t *testing.T) {
	r := newTestRegistry(clockwork.NewFakeClock())

	s := r.Create()
	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Delete(s.ID()))
	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete(s.ID()), ErrSessionNotFound)
}

func TestRegistry_DeleteResetsAndRunsHooks(t *testing.T) {
	r := newTestRegistry(clockwork.NewFakeClock())
	var tornDown []uuid.UUID
	r.OnTeardown(func(id uuid.UUID) { tornDown = append(tornDown, id) })

	s := r.Create()
	s.AddResumes(pdf("a.pdf"))

	require.NoError(t, r.Delete(s.ID()))

	assert.Equal(t, []uuid.UUID{s.ID()}, tornDown)
	assert.Empty(t, s.Names())
}

func TestRegistry_SweepEvictsIdleSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newTestRegistry(clock)
	var tornDown []uuid.UUID
	r.OnTeardown(func(id uuid.UUID) { tornDown = append(tornDown, id) })

	idle := r.Create()
	active := r.Create()

	clock.Advance(45 * time.Minute)
	_, err := r.Get(active.ID())
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, r.Sweep())

	_, err = r.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(active.ID())
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{idle.ID()}, tornDown)
}

func TestRegistry_SweepDisabled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry(RegistryConfig{Clock: clock})
	r.Create()

	clock.Advance(1000 * time.Hour)
	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_StartStop(t *testing.T) {
	r := newTestRegistry(clockwork.NewFakeClock())
	require.NoError(t, r.Start())
	r.Stop()
	r.Stop()
}

func TestRegistry_StartRejectsBadSpec(t *testing.T) {
	r := NewRegistry(RegistryConfig{IdleTimeout: time.Hour, SweepSpec: "every now and then"})
	assert.Error(t, r.Start())
}
