/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwk provides the JSON Web Key representation used in DID documents.
package jwk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Key type and curve names as registered in RFC 7518 and RFC 8037.
const (
	KtyEC  = "EC"
	KtyOKP = "OKP"

	CrvP256    = "P-256"
	CrvEd25519 = "Ed25519"
)

// JWK is a public JSON Web Key. Only the EC (P-256) and OKP (Ed25519) forms
// produced by the credential bridge and the did:jwk method are modelled.
type JWK struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv,omitempty"`
	X      string   `json:"x,omitempty"`
	Y      string   `json:"y,omitempty"`
	Use    string   `json:"use,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
	Alg    string   `json:"alg,omitempty"`
}

// NewEC256 builds a P-256 EC key from raw x and y coordinates.
func NewEC256(x, y []byte) *JWK {
	return &JWK{
		Kty:    KtyEC,
		Crv:    CrvP256,
		X:      base64.RawURLEncoding.EncodeToString(x),
		Y:      base64.RawURLEncoding.EncodeToString(y),
		Use:    "sig",
		KeyOps: []string{"verify"},
	}
}

// NewEd25519 builds an OKP key from a raw Ed25519 public key.
func NewEd25519(pub []byte) *JWK {
	return &JWK{
		Kty: KtyOKP,
		Crv: CrvEd25519,
		X:   base64.RawURLEncoding.EncodeToString(pub),
	}
}

// XBytes returns the decoded x coordinate (or OKP public key).
func (j *JWK) XBytes() ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, fmt.Errorf("jwk: decode x: %w", err)
	}

	return b, nil
}

// YBytes returns the decoded y coordinate.
func (j *JWK) YBytes() ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(j.Y)
	if err != nil {
		return nil, fmt.Errorf("jwk: decode y: %w", err)
	}

	return b, nil
}

// Parse decodes a JWK from its JSON form.
func Parse(data []byte) (*JWK, error) {
	j := &JWK{}

	if err := json.Unmarshal(data, j); err != nil {
		return nil, fmt.Errorf("jwk: unmarshal: %w", err)
	}

	if j.Kty == "" {
		return nil, fmt.Errorf("jwk: missing kty")
	}

	return j, nil
}
