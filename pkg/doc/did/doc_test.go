/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowssi/flownode/pkg/doc/jwk"
)

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := Parse("did:example:123456789abcdefghi")
		require.NoError(t, err)
		require.Equal(t, "did", d.Scheme)
		require.Equal(t, "example", d.Method)
		require.Equal(t, "123456789abcdefghi", d.MethodSpecificID)
		require.Equal(t, "did:example:123456789abcdefghi", d.String())
	})

	t.Run("percent encoded method specific id", func(t *testing.T) {
		d, err := Parse("did:web:example.com%3A3000")
		require.NoError(t, err)
		require.Equal(t, "web", d.Method)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, bad := range []string{"", "did:", "did::", "not-a-did", "did:UPPER:x"} {
			_, err := Parse(bad)
			require.Error(t, err, "expected %q to be rejected", bad)
		}
	})
}

func TestDocJSON(t *testing.T) {
	doc := &Doc{
		Context: []string{ContextV1},
		ID:      "did:example:abc",
		VerificationMethod: []VerificationMethod{
			{
				ID:                 "did:example:abc#key-1",
				Type:               "Ed25519VerificationKey2020",
				Controller:         "did:example:abc",
				PublicKeyMultibase: "z6Mk",
			},
			{
				ID:           "did:example:abc#key-2",
				Type:         "JsonWebKey2020",
				Controller:   "did:example:abc",
				PublicKeyJwk: jwk.NewEd25519(make([]byte, 32)),
			},
		},
		Authentication:  []string{"did:example:abc#key-1"},
		AssertionMethod: []string{"did:example:abc#key-1"},
		Service: []Service{
			{ID: "did:example:abc#service-1", Type: "DIDCommMessaging", ServiceEndpoint: Endpoint{URI: "https://agent.example.com"}},
		},
	}

	b, err := doc.JSONBytes()
	require.NoError(t, err)

	var raw map[string]interface{}

	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, "did:example:abc", raw["id"])
	require.Contains(t, raw, "@context")
	require.Contains(t, raw, "verificationMethod")
	require.Contains(t, raw, "authentication")
	require.Contains(t, raw, "service")

	parsed, err := ParseDocument(b)
	require.NoError(t, err)
	require.Equal(t, doc.ID, parsed.ID)
	require.Len(t, parsed.VerificationMethod, 2)
	require.Equal(t, "https://agent.example.com", parsed.Service[0].ServiceEndpoint.URI)
}

func TestEndpointJSON(t *testing.T) {
	t.Run("bare uri", func(t *testing.T) {
		b, err := json.Marshal(Endpoint{URI: "https://example.com"})
		require.NoError(t, err)
		require.JSONEq(t, `"https://example.com"`, string(b))
	})

	t.Run("structured", func(t *testing.T) {
		ep := Endpoint{
			URI:         "https://example.com",
			RoutingKeys: []string{"did:example:router#key-1"},
			Accept:      []string{"didcomm/v2"},
		}

		b, err := json.Marshal(ep)
		require.NoError(t, err)

		var back Endpoint

		require.NoError(t, json.Unmarshal(b, &back))
		require.Equal(t, ep, back)
	})

	t.Run("unmarshal bare uri", func(t *testing.T) {
		var ep Endpoint

		require.NoError(t, json.Unmarshal([]byte(`"wss://node.example.com"`), &ep))
		require.Equal(t, "wss://node.example.com", ep.URI)
		require.True(t, ep.IsBareURI())
	})
}
