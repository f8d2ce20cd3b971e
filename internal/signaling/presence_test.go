package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceLastWriterWins(t *testing.T) {
	r := NewPresenceRegistry()

	evicted := r.Register("conn-1", "alice", "Alice", "elderly", "iOS / Safari")
	assert.Empty(t, evicted)

	// 同一用户新连接顶掉旧连接
	evicted = r.Register("conn-2", "alice", "Alice", "elderly", "Android / Chrome")
	assert.Equal(t, "conn-1", evicted)

	connID, ok := r.LookupConn("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-2", connID)

	_, ok = r.Lookup("conn-1")
	assert.False(t, ok, "evicted connection should be gone")

	users := r.List()
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].UserID)
	assert.Equal(t, "Android / Chrome", users[0].Device)
}

func TestPresenceStaleDisconnectKeepsNewConn(t *testing.T) {
	r := NewPresenceRegistry()
	r.Register("conn-1", "alice", "Alice", "elderly", "")
	r.Register("conn-2", "alice", "Alice", "elderly", "")

	// 被顶掉的旧连接随后断开，不能影响新连接的在线状态
	_, ok := r.Unregister("conn-1")
	assert.False(t, ok)

	connID, ok := r.LookupConn("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-2", connID)
	assert.Equal(t, 1, r.Count())
}

func TestPresenceUnregister(t *testing.T) {
	r := NewPresenceRegistry()
	r.Register("conn-1", "alice", "Alice", "elderly", "")

	entry, ok := r.Unregister("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", entry.UserID)

	_, ok = r.LookupConn("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())

	_, ok = r.Unregister("conn-1")
	assert.False(t, ok, "double unregister is a no-op")
}

func TestPresenceListOthers(t *testing.T) {
	r := NewPresenceRegistry()
	r.Register("conn-1", "alice", "Alice", "elderly", "")
	r.Register("conn-2", "bob", "Bob", "caregiver", "")

	others := r.ListOthers("conn-1")
	require.Len(t, others, 1)
	assert.Equal(t, "bob", others[0].UserID)
}

func TestPresenceConnsWithRoles(t *testing.T) {
	r := NewPresenceRegistry()
	r.Register("conn-1", "alice", "Alice", "elderly", "")
	r.Register("conn-2", "bob", "Bob", "caregiver", "")
	r.Register("conn-3", "carol", "Carol", "doctor", "")

	conns := r.ConnsWithRoles(map[string]bool{"caregiver": true, "doctor": true})
	assert.ElementsMatch(t, []string{"conn-2", "conn-3"}, conns)
}
