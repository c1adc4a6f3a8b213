/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"context"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowssi/flownode/pkg/doc/jwk"
	"github.com/flowssi/flownode/pkg/vdr/fingerprint"
)

func TestAccept(t *testing.T) {
	v := New()

	require.True(t, v.Accept("key"))
	require.True(t, v.Accept("jwk"))
	require.False(t, v.Accept("web"))
}

func TestReadDIDKeyEd25519(t *testing.T) {
	const did = "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"

	resolution, err := New().Read(context.Background(), did)
	require.NoError(t, err)
	require.Equal(t, "application/did+json", resolution.ContentType)

	doc := resolution.Document
	require.Equal(t, did, doc.ID)
	require.Len(t, doc.VerificationMethod, 1)
	require.Equal(t, "Ed25519VerificationKey2020", doc.VerificationMethod[0].Type)
	require.Equal(t, []string{doc.VerificationMethod[0].ID}, doc.Authentication)
	require.Equal(t, []string{doc.VerificationMethod[0].ID}, doc.AssertionMethod)
}

func TestReadDIDKeyP256(t *testing.T) {
	curve := elliptic.P256()
	x, y := curve.ScalarBaseMult([]byte("fixed test scalar for p256 keys!"))
	compressed := elliptic.MarshalCompressed(curve, x, y)

	did, _ := fingerprint.CreateDIDKeyByCode(fingerprint.P256PubKeyMultiCodec, compressed)

	resolution, err := New().Read(context.Background(), did)
	require.NoError(t, err)

	vm := resolution.Document.VerificationMethod[0]
	require.Equal(t, "JsonWebKey2020", vm.Type)
	require.NotNil(t, vm.PublicKeyJwk)
	require.Equal(t, jwk.KtyEC, vm.PublicKeyJwk.Kty)
	require.Equal(t, jwk.CrvP256, vm.PublicKeyJwk.Crv)

	xb, err := vm.PublicKeyJwk.XBytes()
	require.NoError(t, err)
	require.Equal(t, x.FillBytes(make([]byte, 32)), xb)
}

func TestReadDIDJWK(t *testing.T) {
	key := jwk.NewEd25519(make([]byte, 32))

	raw, err := json.Marshal(key)
	require.NoError(t, err)

	did := "did:jwk:" + base64.RawURLEncoding.EncodeToString(raw)

	resolution, err := New().Read(context.Background(), did)
	require.NoError(t, err)

	doc := resolution.Document
	require.Equal(t, did, doc.ID)
	require.Equal(t, did+"#0", doc.VerificationMethod[0].ID)
	require.Equal(t, []string{did + "#0"}, doc.Authentication)
	require.Empty(t, doc.KeyAgreement)
}

func TestReadErrors(t *testing.T) {
	t.Run("bad fingerprint", func(t *testing.T) {
		_, err := New().Read(context.Background(), "did:key:notAFingerprint")
		require.Error(t, err)
	})

	t.Run("bad jwk payload", func(t *testing.T) {
		_, err := New().Read(context.Background(), "did:jwk:!!!")
		require.Error(t, err)
	})
}
