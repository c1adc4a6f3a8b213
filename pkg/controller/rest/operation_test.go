/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	wan "github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/require"

	mockstorage "github.com/flowssi/flownode/pkg/mock/storage"
	mockwan "github.com/flowssi/flownode/pkg/mock/webauthn"
	"github.com/flowssi/flownode/pkg/vdr"
	"github.com/flowssi/flownode/pkg/vdr/key"
	"github.com/flowssi/flownode/pkg/webauthn"
)

// eddsaCOSE is a CBOR COSE key for a fixed Ed25519 public key.
func eddsaCOSE(t *testing.T) []byte {
	t.Helper()

	pub := bytes.Repeat([]byte{8}, 32)

	cose, err := cbor.Marshal(map[int]interface{}{1: 1, 3: -8, -1: 6, -2: pub})
	require.NoError(t, err)

	return cose
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ceremonies := &mockwan.MockCeremonies{
		RegistrationCredential: &wan.Credential{
			ID:        []byte("credential-1"),
			PublicKey: eddsaCOSE(t),
		},
		LoginCredential: &wan.Credential{
			ID:            []byte("credential-1"),
			Authenticator: wan.Authenticator{SignCount: 1},
			Flags:         wan.CredentialFlags{UserVerified: true},
		},
	}

	provider := mockstorage.NewMockProvider()
	manager := webauthn.NewManager(ceremonies, provider)
	registry := vdr.New(vdr.WithResolver(key.New()))

	srv := httptest.NewServer(New(manager, registry, provider.SpaceStore()).Router())
	t.Cleanup(srv.Close)

	return srv
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec,noctx
	require.NoError(t, err)

	defer resp.Body.Close() //nolint:errcheck

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw)) //nolint:gosec,noctx
	require.NoError(t, err)

	defer resp.Body.Close() //nolint:errcheck

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var health map[string]interface{}

	resp := getJSON(t, srv.URL+HealthPath, &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", health["status"])
}

func TestRegistrationFlow(t *testing.T) {
	srv := newTestServer(t)

	t.Run("start requires device_id", func(t *testing.T) {
		resp := getJSON(t, srv.URL+RegisterStartPath, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	var challenge struct {
		ChallengeID string `json:"challenge_id"`
	}

	resp := getJSON(t, srv.URL+RegisterStartPath+"?device_id=device-1", &challenge)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, challenge.ChallengeID)

	t.Run("finish requires challenge_id and credential", func(t *testing.T) {
		resp := postJSON(t, srv.URL+RegisterFinishPath, map[string]interface{}{}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = postJSON(t, srv.URL+RegisterFinishPath,
			map[string]interface{}{"challenge_id": challenge.ChallengeID}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	var result struct {
		DID         string `json:"did"`
		DIDDocument string `json:"did_document"`
	}

	resp = postJSON(t, srv.URL+RegisterFinishPath, map[string]interface{}{
		"challenge_id": challenge.ChallengeID,
		"credential":   map[string]string{"simulated": "authenticator"},
	}, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, result.DID, "did:key:")
	require.NotEmpty(t, result.DIDDocument)

	t.Run("reused challenge fails", func(t *testing.T) {
		resp := postJSON(t, srv.URL+RegisterFinishPath, map[string]interface{}{
			"challenge_id": challenge.ChallengeID,
			"credential":   map[string]string{},
		}, nil)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("authentication flow", func(t *testing.T) {
		var authChallenge struct {
			ChallengeID string `json:"challenge_id"`
		}

		resp := getJSON(t, srv.URL+AuthenticateStartPath+"?device_id=device-1", &authChallenge)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var verification struct {
			Counter      uint32 `json:"counter"`
			UserVerified bool   `json:"user_verified"`
		}

		resp = postJSON(t, srv.URL+AuthenticateFinishPath, map[string]interface{}{
			"challenge_id": authChallenge.ChallengeID,
			"credential":   map[string]string{"simulated": "assertion"},
		}, &verification)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, uint32(1), verification.Counter)
		require.True(t, verification.UserVerified)
	})
}

func TestAuthenticateStartWithoutCredentials(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+AuthenticateStartPath+"?device_id=device-unknown", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestResolve(t *testing.T) {
	srv := newTestServer(t)

	t.Run("requires did", func(t *testing.T) {
		resp := getJSON(t, srv.URL+ResolvePath, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("success", func(t *testing.T) {
		var result map[string]interface{}

		resp := getJSON(t,
			srv.URL+ResolvePath+"?did=did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", &result)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, result, "didDocument")
	})

	t.Run("invalid did still returns a result", func(t *testing.T) {
		var result map[string]interface{}

		resp := getJSON(t, srv.URL+ResolvePath+"?did=not-a-did", &result)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		metadata, ok := result["didResolutionMetadata"].(map[string]interface{})
		require.True(t, ok)

		errObj, ok := metadata["error"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, "invalidDid", errObj["error"])
	})

	t.Run("bad timeout", func(t *testing.T) {
		resp := getJSON(t, srv.URL+ResolvePath+"?did=did:key:abc&timeout_ms=nope", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCreateSpace(t *testing.T) {
	srv := newTestServer(t)

	t.Run("requires location", func(t *testing.T) {
		resp := postJSON(t, srv.URL+SpacesPath, map[string]string{}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("provisions and is idempotent", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "space-a")

		var first createSpaceResponse

		resp := postJSON(t, srv.URL+SpacesPath, map[string]string{"location": location}, &first)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, first.Key)

		var second createSpaceResponse

		resp = postJSON(t, srv.URL+SpacesPath, map[string]string{"location": location}, &second)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, first.Key, second.Key)
	})
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+RegisterFinishPath, "application/json", //nolint:noctx
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)

	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
