/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package space provisions storage spaces: named on-disk locations keyed by
// the hash of their canonical path.
package space

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowssi/flownode/pkg/common/log"
	"github.com/flowssi/flownode/pkg/storage"
)

var logger = log.New("flownode/space")

const dirPermissions = 0o750

// Provision registers dir as a space, creating the directory when missing.
// Provisioning the same directory twice is a no-op that returns the existing
// space.
func Provision(store storage.SpaceStore, dir string) (*storage.Space, error) {
	location, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("canonicalize space path %q: %w", dir, err)
	}

	key := Key(location)

	existing, err := store.FindByKey(key)
	if err == nil {
		logger.Debugf("space %s already provisioned at %s", key, existing.Location)

		return existing, nil
	}

	if !errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("look up space %s: %w", key, err)
	}

	if err := os.MkdirAll(location, dirPermissions); err != nil {
		return nil, fmt.Errorf("create space directory %s: %w", location, err)
	}

	created, err := store.Create(&storage.Space{Key: key, Location: location})
	if err != nil {
		return nil, fmt.Errorf("persist space %s: %w", key, err)
	}

	logger.Infof("provisioned space %s at %s", key, location)

	return created, nil
}

// Key returns the space key for a canonical location: the hex SHA-256 of the
// path.
func Key(location string) string {
	sum := sha256.Sum256([]byte(location))

	return hex.EncodeToString(sum[:])
}
