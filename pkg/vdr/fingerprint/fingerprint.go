/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fingerprint implements the multicodec/multibase public key codec
// shared by the did:peer and did:key methods.
package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"
)

// KeyType is a raw public key type supported by the codec.
type KeyType int

const (
	// Ed25519 signing key, 32 bytes raw.
	Ed25519 KeyType = iota
	// X25519 key agreement key, 32 bytes raw.
	X25519
	// Secp256k1 compressed key, 33 bytes raw.
	Secp256k1
	// P256 compressed key, 33 bytes raw.
	P256
)

// Multicodec identifiers for did:key fingerprints. These are varint-encoded
// before the key bytes, unlike the fixed two-byte did:peer prefixes.
const (
	// ED25519PubKeyMultiCodec ed25519-pub.
	ED25519PubKeyMultiCodec = 0xed
	// X25519PubKeyMultiCodec x25519-pub.
	X25519PubKeyMultiCodec = 0xec
	// P256PubKeyMultiCodec p256-pub (compressed).
	P256PubKeyMultiCodec = 0x1200
)

// ErrUnsupportedKeyType is returned when a key type has no multicodec prefix.
var ErrUnsupportedKeyType = errors.New("unsupported key type")

// peerPrefixes maps key types to the fixed two-byte multicodec prefixes used
// by did:peer verification material.
var peerPrefixes = map[KeyType][]byte{ //nolint:gochecknoglobals
	Ed25519:   {0xed, 0x01},
	X25519:    {0xec, 0x01},
	Secp256k1: {0xe7, 0x01},
	P256:      {0x80, 0x24},
}

// Encode prefixes raw key bytes with the two-byte multicodec identifier for
// keyType and encodes the result as base58btc multibase ('z' prefix).
func Encode(keyType KeyType, raw []byte) (string, error) {
	prefix, ok := peerPrefixes[keyType]
	if !ok {
		return "", fmt.Errorf("encode key: %w: %d", ErrUnsupportedKeyType, keyType)
	}

	prefixed := make([]byte, 0, len(prefix)+len(raw))
	prefixed = append(prefixed, prefix...)
	prefixed = append(prefixed, raw...)

	encoded, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return "", fmt.Errorf("encode key: %w", err)
	}

	return encoded, nil
}

// Decode reverses Encode: it strips the multibase wrapping, matches the
// two-byte multicodec prefix and returns the key type with the raw key bytes.
func Decode(encoded string) (KeyType, []byte, error) {
	_, decoded, err := multibase.Decode(encoded)
	if err != nil {
		return 0, nil, fmt.Errorf("decode key: %w", err)
	}

	if len(decoded) < 3 {
		return 0, nil, fmt.Errorf("decode key: multicodec value too short")
	}

	for keyType, prefix := range peerPrefixes {
		if decoded[0] == prefix[0] && decoded[1] == prefix[1] {
			return keyType, decoded[2:], nil
		}
	}

	return 0, nil, fmt.Errorf("decode key: %w: prefix 0x%x%x", ErrUnsupportedKeyType, decoded[0], decoded[1])
}

// CreateDIDKeyByCode builds a did:key DID and its key ID fragment from raw
// public key bytes and a varint multicodec code.
func CreateDIDKeyByCode(code uint64, pubKey []byte) (string, string) {
	methodSpecificID := KeyFingerprint(code, pubKey)
	did := fmt.Sprintf("did:key:%s", methodSpecificID)
	keyID := fmt.Sprintf("%s#%s", did, methodSpecificID)

	return did, keyID
}

// KeyFingerprint returns the varint-multicodec base58btc fingerprint of
// pubKeyValue, e.g. "z6Mk..." for an ed25519 key.
func KeyFingerprint(code uint64, pubKeyValue []byte) string {
	multicodecValue := multicodec(code)
	mcLength := len(multicodecValue)
	buf := make([]byte, mcLength+len(pubKeyValue))
	copy(buf, multicodecValue)
	copy(buf[mcLength:], pubKeyValue)

	return fmt.Sprintf("z%s", base58.Encode(buf))
}

func multicodec(code uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, code)

	return buf[:n]
}

// PubKeyFromFingerprint extracts the raw public key and its varint multicodec
// code from a did:key fingerprint.
func PubKeyFromFingerprint(fingerprint string) ([]byte, uint64, error) {
	const maxMulticodecBytes = 9

	if len(fingerprint) < 2 || fingerprint[0] != 'z' {
		return nil, 0, errors.New("unknown key encoding")
	}

	mc := base58.Decode(fingerprint[1:])

	code, br := binary.Uvarint(mc)
	if br == 0 {
		return nil, 0, errors.New("unknown key encoding")
	}

	if br > maxMulticodecBytes {
		return nil, 0, errors.New("code exceeds maximum size")
	}

	return mc[br:], code, nil
}
