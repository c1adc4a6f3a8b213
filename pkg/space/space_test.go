/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package space

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowssi/flownode/pkg/storage/mem"
)

func TestProvision(t *testing.T) {
	store := mem.NewProvider().SpaceStore()
	dir := filepath.Join(t.TempDir(), "workspace")

	created, err := Provision(store, dir)
	require.NoError(t, err)
	require.Equal(t, Key(created.Location), created.Key)
	require.DirExists(t, dir)

	t.Run("idempotent", func(t *testing.T) {
		again, err := Provision(store, dir)
		require.NoError(t, err)
		require.Equal(t, created.ID, again.ID)
	})

	t.Run("existing directory", func(t *testing.T) {
		existing := filepath.Join(t.TempDir(), "already-there")
		require.NoError(t, os.MkdirAll(existing, 0o750))

		_, err := Provision(store, existing)
		require.NoError(t, err)
	})
}
