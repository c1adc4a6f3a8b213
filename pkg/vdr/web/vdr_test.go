/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowssi/flownode/pkg/vdr/api"
)

func TestEndpointFromDID(t *testing.T) {
	tests := []struct {
		did      string
		expected string
	}{
		{did: "did:web:example.com", expected: "https://example.com/.well-known/did.json"},
		{did: "did:web:example.com:user:alice", expected: "https://example.com/user/alice/did.json"},
		{did: "did:web:example.com%3A3000", expected: "https://example.com:3000/.well-known/did.json"},
		{did: "did:web:example.com%3A3000:user:alice", expected: "https://example.com:3000/user/alice/did.json"},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.did, func(t *testing.T) {
			endpoint, err := EndpointFromDID(tc.did)
			require.NoError(t, err)
			require.Equal(t, tc.expected, endpoint)
		})
	}
}

func TestEndpointFromDIDRejects(t *testing.T) {
	for _, bad := range []string{
		"did:key:z6Mk",
		"did:web:",
		"did:web:example.com%2Fevil",
		"did:web:user%40example.com",
		"did:web:example.com:..:secrets",
		"did:web:example.com:.",
	} {
		_, err := EndpointFromDID(bad)
		require.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestRead(t *testing.T) {
	var did string

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/did.json":
			fmt.Fprintf(w, `{"@context":["https://www.w3.org/ns/did/v1"],"id":%q}`, did)
		case "/mismatch/did.json":
			fmt.Fprint(w, `{"id":"did:web:somebody-else.example"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	host, err := url.Parse(srv.URL)
	require.NoError(t, err)

	// host:port must be percent-encoded in the method-specific id.
	encodedHost := strings.ReplaceAll(host.Host, ":", "%3A")
	did = "did:web:" + encodedHost

	v := New(WithHTTPClient(srv.Client()))
	require.True(t, v.Accept("web"))

	t.Run("success", func(t *testing.T) {
		resolution, err := v.Read(context.Background(), did)
		require.NoError(t, err)
		require.Equal(t, did, resolution.Document.ID)
		require.Equal(t, "application/did+json", resolution.ContentType)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := v.Read(context.Background(), "did:web:"+encodedHost+":missing")
		require.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("document id mismatch", func(t *testing.T) {
		_, err := v.Read(context.Background(), "did:web:"+encodedHost+":mismatch")
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not match")
	})
}
