package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFullHandshake(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	require.NoError(t, m.Put(ctx, "sid", "abcdefghij"))
	state, err := m.Arm(ctx, "sid")
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	pass, err := m.Take(ctx, "sid", state)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", pass.LinkID())
	assert.Equal(t, 0, m.Len())
}

func TestMemoryTakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	require.NoError(t, m.Put(ctx, "sid", "abcdefghij"))
	state, err := m.Arm(ctx, "sid")
	require.NoError(t, err)

	_, err = m.Take(ctx, "sid", state)
	require.NoError(t, err)

	_, err = m.Take(ctx, "sid", state)
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestMemoryStateMismatchConsumesSlot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	require.NoError(t, m.Put(ctx, "sid", "abcdefghij"))
	state, err := m.Arm(ctx, "sid")
	require.NoError(t, err)

	_, err = m.Take(ctx, "sid", "forged")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = m.Take(ctx, "sid", state)
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestMemoryTakeWithoutArm(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	require.NoError(t, m.Put(ctx, "sid", "abcdefghij"))
	_, err := m.Take(ctx, "sid", "")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestMemoryPutDiscardsIssuedState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	require.NoError(t, m.Put(ctx, "sid", "first00000"))
	state, err := m.Arm(ctx, "sid")
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, "sid", "second0000"))
	_, err = m.Take(ctx, "sid", state)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestMemoryArmUnknownSession(t *testing.T) {
	m := NewMemory(time.Minute)
	_, err := m.Arm(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestMemorySlotExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Put(ctx, "sid", "abcdefghij"))
	state, err := m.Arm(ctx, "sid")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Take(ctx, "sid", state)
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestMemorySessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	require.NoError(t, m.Put(ctx, "a", "link00000a"))
	require.NoError(t, m.Put(ctx, "b", "link00000b"))
	stateA, err := m.Arm(ctx, "a")
	require.NoError(t, err)

	_, err = m.Take(ctx, "b", stateA)
	assert.ErrorIs(t, err, ErrStateMismatch)

	pass, err := m.Take(ctx, "a", stateA)
	require.NoError(t, err)
	assert.Equal(t, "link00000a", pass.LinkID())
}

func TestNewStateIsRandom(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 22)
}
