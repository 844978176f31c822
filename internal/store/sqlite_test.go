package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mixchat/internal/domain"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAndGetUser(t *testing.T) {
	s := openTestDB(t)

	require.NoError(t, s.RegisterUser("alice", "PEM-A"))
	u, err := s.GetUser("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "PEM-A", u.PublicKey)

	// Re-registering replaces the key.
	require.NoError(t, s.RegisterUser("alice", "PEM-B"))
	u, err = s.GetUser("alice")
	require.NoError(t, err)
	require.Equal(t, "PEM-B", u.PublicKey)

	_, err = s.GetUser("nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactsArePartitionedByOwner(t *testing.T) {
	s := openTestDB(t)

	require.NoError(t, s.AddContact("alice", domain.Contact{Username: "bob", PublicKey: "PEM-BOB"}))
	require.NoError(t, s.AddContact("carol", domain.Contact{Username: "dave", PublicKey: "PEM-DAVE"}))

	c, err := s.GetContact("alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "PEM-BOB", c.PublicKey)

	// alice cannot see carol's contact.
	_, err = s.GetContact("alice", "dave")
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.Contacts("alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "bob", got[0].Username)
}

func TestMessagesOrderedPerContact(t *testing.T) {
	s := openTestDB(t)
	base := time.Unix(1700000000, 0)

	require.NoError(t, s.SaveMessage("alice", domain.Message{
		Contact: "bob", Direction: domain.DirectionSent, Body: "first", Timestamp: base,
	}))
	require.NoError(t, s.SaveMessage("alice", domain.Message{
		Contact: "bob", Direction: domain.DirectionReceived, Body: "second", Timestamp: base.Add(time.Minute),
	}))
	require.NoError(t, s.SaveMessage("alice", domain.Message{
		Contact: "carol", Direction: domain.DirectionSent, Body: "other thread", Timestamp: base,
	}))

	msgs, err := s.Messages("alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Body)
	require.Equal(t, domain.DirectionSent, msgs[0].Direction)
	require.Equal(t, "second", msgs[1].Body)
	require.Equal(t, domain.DirectionReceived, msgs[1].Direction)

	// No bleed between owners.
	msgs, err = s.Messages("bob", "alice")
	require.NoError(t, err)
	require.Empty(t, msgs)
}
