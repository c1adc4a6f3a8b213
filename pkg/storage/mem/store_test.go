/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowssi/flownode/pkg/storage"
)

func TestUserStore(t *testing.T) {
	users := NewProvider().UserStore()

	_, err := users.FindByDID("did:key:z6MkMissing")
	require.ErrorIs(t, err, storage.ErrDataNotFound)

	created, err := users.Create(&storage.User{DID: "did:key:z6MkAlice", Username: "alice"})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.False(t, created.CreatedAt.IsZero())

	found, err := users.FindByDID("did:key:z6MkAlice")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, "alice", found.Username)
}

func TestCredentialStore(t *testing.T) {
	credentials := NewProvider().CredentialStore()

	userID := int64(1)

	first, err := credentials.Store(&storage.CredentialRecord{
		UserID:       &userID,
		DeviceID:     "device-1",
		CredentialID: []byte{1, 2, 3},
		PublicKey:    []byte{4, 5, 6},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)

	_, err = credentials.Store(&storage.CredentialRecord{DeviceID: "device-2", CredentialID: []byte{9}})
	require.NoError(t, err)

	t.Run("duplicate credential id rejected", func(t *testing.T) {
		_, err := credentials.Store(&storage.CredentialRecord{
			DeviceID:     "device-1",
			CredentialID: []byte{1, 2, 3},
		})
		require.ErrorIs(t, err, storage.ErrDuplicate)

		found, err := credentials.FindByDevice("device-1")
		require.NoError(t, err)
		require.Len(t, found, 1)
	})

	t.Run("find by device", func(t *testing.T) {
		found, err := credentials.FindByDevice("device-1")
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, []byte{1, 2, 3}, found[0].CredentialID)

		none, err := credentials.FindByDevice("device-3")
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("update counter", func(t *testing.T) {
		require.NoError(t, credentials.UpdateCounter([]byte{1, 2, 3}, 7))

		found, err := credentials.FindByDevice("device-1")
		require.NoError(t, err)
		require.Equal(t, uint32(7), found[0].SignCount)
		require.Equal(t, int64(1), found[0].AuthenticationCount)
		require.NotNil(t, found[0].LastAuthenticated)

		err = credentials.UpdateCounter([]byte{0xff}, 1)
		require.ErrorIs(t, err, storage.ErrDataNotFound)
	})
}

func TestSpaceStore(t *testing.T) {
	spaces := NewProvider().SpaceStore()

	_, err := spaces.FindByKey("missing")
	require.ErrorIs(t, err, storage.ErrDataNotFound)

	created, err := spaces.Create(&storage.Space{Key: "abc123", Location: "/tmp/space"})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)

	found, err := spaces.FindByKey("abc123")
	require.NoError(t, err)
	require.Equal(t, "/tmp/space", found.Location)
}
