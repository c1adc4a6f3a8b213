/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"time"
)

// finishRequest completes either ceremony: the challenge id issued at start
// and the authenticator's response, passed through verbatim.
type finishRequest struct {
	ChallengeID string          `json:"challenge_id"`
	Credential  json.RawMessage `json:"credential"`
}

type createSpaceRequest struct {
	Location string `json:"location"`
}

type createSpaceResponse struct {
	Key      string `json:"key"`
	Location string `json:"location"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
