package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetRoundTrip(t *testing.T) {
	m := NewManager(Options{})
	defer m.Shutdown()

	s, err := m.Create("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	got, err := m.Get("alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestGetRejectsWrongOwner(t *testing.T) {
	m := NewManager(Options{})
	defer m.Shutdown()

	s, err := m.Create("alice")
	require.NoError(t, err)

	_, err = m.Get("bob", s.ID)
	assert.Error(t, err)
}

func TestCreateEnforcesPerOwnerQuota(t *testing.T) {
	m := NewManager(Options{MaxSessionsPerOwner: 2, MaxSessionsTotal: 50})
	defer m.Shutdown()

	_, err := m.Create("alice")
	require.NoError(t, err)
	_, err = m.Create("alice")
	require.NoError(t, err)

	_, err = m.Create("alice")
	assert.Error(t, err)
}

func TestCreateEnforcesGlobalQuota(t *testing.T) {
	m := NewManager(Options{MaxSessionsPerOwner: 50, MaxSessionsTotal: 1})
	defer m.Shutdown()

	_, err := m.Create("alice")
	require.NoError(t, err)
	_, err = m.Create("bob")
	assert.Error(t, err)
}

func TestCloseRemovesSession(t *testing.T) {
	m := NewManager(Options{})
	defer m.Shutdown()

	s, err := m.Create("alice")
	require.NoError(t, err)
	require.NoError(t, m.Close("alice", s.ID))

	_, err = m.Get("alice", s.ID)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestBumpEpochStrictlyIncreases(t *testing.T) {
	m := NewManager(Options{})
	defer m.Shutdown()

	s, err := m.Create("alice")
	require.NoError(t, err)

	before := s.Epoch()
	after := s.BumpEpoch()
	assert.Greater(t, after, before)
	assert.Equal(t, after, s.Epoch())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m := NewManager(Options{InactivityTimeout: 10 * time.Millisecond, SweepInterval: 5 * time.Millisecond})
	defer m.Shutdown()

	s, err := m.Create("alice")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := m.Get("alice", s.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}
