/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"fmt"
	"strings"

	"github.com/flowssi/flownode/pkg/vdr/fingerprint"
)

const rawKeySize = 32

// FromEd25519Bytes builds a numalgo-0 did:peer from a raw 32-byte Ed25519
// public key.
func FromEd25519Bytes(pub []byte) (string, error) {
	return fromRawKey(fingerprint.Ed25519, pub)
}

// FromX25519Bytes builds a numalgo-0 did:peer from a raw 32-byte X25519
// public key.
func FromX25519Bytes(pub []byte) (string, error) {
	return fromRawKey(fingerprint.X25519, pub)
}

func fromRawKey(keyType fingerprint.KeyType, pub []byte) (string, error) {
	if len(pub) != rawKeySize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, rawKeySize, len(pub))
	}

	encoded, err := fingerprint.Encode(keyType, pub)
	if err != nil {
		return "", err
	}

	return didPrefix + "0" + encoded, nil
}

// GenerateNumalgo2 builds a numalgo-2 did:peer from raw Ed25519 verification
// keys and raw X25519 encryption keys, emitting E segments then V segments.
func GenerateNumalgo2(verificationKeys, encryptionKeys [][]byte) (string, error) {
	var b strings.Builder

	b.WriteString(didPrefix + "2")

	for _, key := range verificationKeys {
		encoded, err := encodeRaw(fingerprint.Ed25519, key)
		if err != nil {
			return "", fmt.Errorf("verification key: %w", err)
		}

		b.WriteString(".E" + encoded)
	}

	for _, key := range encryptionKeys {
		encoded, err := encodeRaw(fingerprint.X25519, key)
		if err != nil {
			return "", fmt.Errorf("encryption key: %w", err)
		}

		b.WriteString(".V" + encoded)
	}

	return b.String(), nil
}

func encodeRaw(keyType fingerprint.KeyType, key []byte) (string, error) {
	if len(key) != rawKeySize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, rawKeySize, len(key))
	}

	return fingerprint.Encode(keyType, key)
}
