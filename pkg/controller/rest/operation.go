/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rest exposes the node's HTTP API: WebAuthn ceremonies, space
// provisioning, DID resolution and health.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/flowssi/flownode/pkg/common/log"
	"github.com/flowssi/flownode/pkg/space"
	"github.com/flowssi/flownode/pkg/storage"
	"github.com/flowssi/flownode/pkg/vdr"
	"github.com/flowssi/flownode/pkg/webauthn"
)

var logger = log.New("flownode/rest")

// API paths.
const (
	APIBasePath = "/api/v1"

	RegisterStartPath      = APIBasePath + "/webauthn/register/start"
	RegisterFinishPath     = APIBasePath + "/webauthn/register/finish"
	AuthenticateStartPath  = APIBasePath + "/webauthn/authenticate/start"
	AuthenticateFinishPath = APIBasePath + "/webauthn/authenticate/finish"
	SpacesPath             = APIBasePath + "/spaces"
	ResolvePath            = APIBasePath + "/dids/resolve"
	HealthPath             = APIBasePath + "/health"
)

// Operation holds the node services behind the REST surface.
type Operation struct {
	manager  *webauthn.Manager
	registry *vdr.Registry
	spaces   storage.SpaceStore
}

// New builds the REST operation.
func New(manager *webauthn.Manager, registry *vdr.Registry, spaces storage.SpaceStore) *Operation {
	return &Operation{
		manager:  manager,
		registry: registry,
		spaces:   spaces,
	}
}

// Router returns the HTTP router for all API operations.
func (o *Operation) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc(RegisterStartPath, o.registerStart).Methods(http.MethodGet)
	router.HandleFunc(RegisterFinishPath, o.registerFinish).Methods(http.MethodPost)
	router.HandleFunc(AuthenticateStartPath, o.authenticateStart).Methods(http.MethodGet)
	router.HandleFunc(AuthenticateFinishPath, o.authenticateFinish).Methods(http.MethodPost)
	router.HandleFunc(SpacesPath, o.createSpace).Methods(http.MethodPost)
	router.HandleFunc(ResolvePath, o.resolve).Methods(http.MethodGet)
	router.HandleFunc(HealthPath, o.health).Methods(http.MethodGet)

	return router
}

func (o *Operation) registerStart(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")

		return
	}

	challenge, err := o.manager.StartRegistration(deviceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("start registration: %v", err))

		return
	}

	writeJSON(w, challenge)
}

func (o *Operation) registerFinish(w http.ResponseWriter, r *http.Request) {
	request, ok := readFinishRequest(w, r)
	if !ok {
		return
	}

	result, err := o.manager.FinishRegistration(request.ChallengeID, request.Credential)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("finish registration: %v", err))

		return
	}

	writeJSON(w, result)
}

func (o *Operation) authenticateStart(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")

		return
	}

	challenge, err := o.manager.StartAuthentication(deviceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("start authentication: %v", err))

		return
	}

	writeJSON(w, challenge)
}

func (o *Operation) authenticateFinish(w http.ResponseWriter, r *http.Request) {
	request, ok := readFinishRequest(w, r)
	if !ok {
		return
	}

	result, err := o.manager.FinishAuthentication(request.ChallengeID, request.Credential)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("finish authentication: %v", err))

		return
	}

	writeJSON(w, result)
}

func (o *Operation) createSpace(w http.ResponseWriter, r *http.Request) {
	var request createSpaceRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))

		return
	}

	if request.Location == "" {
		writeError(w, http.StatusBadRequest, "location is required")

		return
	}

	provisioned, err := space.Provision(o.spaces, request.Location)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("provision space: %v", err))

		return
	}

	writeJSON(w, &createSpaceResponse{
		Key:      provisioned.Key,
		Location: provisioned.Location,
	})
}

func (o *Operation) resolve(w http.ResponseWriter, r *http.Request) {
	did := r.URL.Query().Get("did")
	if did == "" {
		writeError(w, http.StatusBadRequest, "did is required")

		return
	}

	var opts []vdr.ResolveOption

	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		timeoutMS, err := strconv.Atoi(raw)
		if err != nil || timeoutMS <= 0 {
			writeError(w, http.StatusBadRequest, "timeout_ms must be a positive integer")

			return
		}

		opts = append(opts, vdr.WithTimeout(time.Duration(timeoutMS)*time.Millisecond))
	}

	writeJSON(w, o.registry.Resolve(r.Context(), did, opts...))
}

func (o *Operation) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, &healthResponse{Status: "ok", Time: time.Now().UTC()})
}

// readFinishRequest decodes and validates a ceremony finish body.
func readFinishRequest(w http.ResponseWriter, r *http.Request) (*finishRequest, bool) {
	var request finishRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))

		return nil, false
	}

	if request.ChallengeID == "" {
		writeError(w, http.StatusBadRequest, "challenge_id is required")

		return nil, false
	}

	if len(request.Credential) == 0 {
		writeError(w, http.StatusBadRequest, "credential is required")

		return nil, false
	}

	return &request, true
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("failed to write response: %v", err)
	}
}

// writeError responds with a plain-text message; internal error structures
// never reach the client.
func writeError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}
