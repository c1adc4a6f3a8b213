/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package startcmd contains the command that runs the node.
package startcmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/flowssi/flownode/pkg/common/log"
	"github.com/flowssi/flownode/pkg/controller/rest"
	"github.com/flowssi/flownode/pkg/storage/mem"
	"github.com/flowssi/flownode/pkg/vdr"
	"github.com/flowssi/flownode/pkg/vdr/httpbinding"
	"github.com/flowssi/flownode/pkg/vdr/key"
	"github.com/flowssi/flownode/pkg/vdr/peer"
	"github.com/flowssi/flownode/pkg/vdr/web"
	"github.com/flowssi/flownode/pkg/webauthn"
)

var logger = log.New("flownode/startcmd")

const (
	hostURLFlagName  = "host-url"
	hostURLEnvKey    = "FLOWNODE_HOST_URL"
	hostURLFlagUsage = "Host and port the node listens on." +
		" Alternatively, this can be set with the following environment variable: " + hostURLEnvKey

	rpIDFlagName  = "rp-id"
	rpIDEnvKey    = "FLOWNODE_RP_ID"
	rpIDFlagUsage = "WebAuthn relying party identifier, e.g. example.com." +
		" Alternatively, this can be set with the following environment variable: " + rpIDEnvKey

	rpDisplayNameFlagName  = "rp-display-name"
	rpDisplayNameEnvKey    = "FLOWNODE_RP_DISPLAY_NAME"
	rpDisplayNameFlagUsage = "WebAuthn relying party display name." +
		" Alternatively, this can be set with the following environment variable: " + rpDisplayNameEnvKey

	rpOriginsFlagName  = "rp-origins"
	rpOriginsEnvKey    = "FLOWNODE_RP_ORIGINS"
	rpOriginsFlagUsage = "Comma-separated list of allowed WebAuthn origins." +
		" Alternatively, this can be set with the following environment variable: " + rpOriginsEnvKey

	resolverURLFlagName  = "resolver-url"
	resolverURLEnvKey    = "FLOWNODE_RESOLVER_URL"
	resolverURLFlagUsage = "Universal resolver endpoint for externally anchored DID methods (optional)." +
		" Alternatively, this can be set with the following environment variable: " + resolverURLEnvKey

	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "FLOWNODE_LOG_LEVEL"
	logLevelFlagUsage = "Log level: panic, fatal, error, warn, info, debug or trace (optional)." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey
)

// externalMethods are routed to the universal resolver when one is
// configured.
var externalMethods = map[string]bool{ //nolint:gochecknoglobals
	"pkh":  true,
	"ethr": true,
	"ion":  true,
	"tz":   true,
}

type parameters struct {
	hostURL       string
	rpID          string
	rpDisplayName string
	rpOrigins     []string
	resolverURL   string
	logLevel      string
}

// New returns the start command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the identity node",
		Long:  "Start the identity node: WebAuthn ceremonies, DID resolution and the REST API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := getParameters(cmd)
			if err != nil {
				return err
			}

			return startNode(params)
		},
	}

	createFlags(cmd)

	return cmd
}

func createFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(hostURLFlagName, "u", "", hostURLFlagUsage)
	cmd.Flags().StringP(rpIDFlagName, "", "", rpIDFlagUsage)
	cmd.Flags().StringP(rpDisplayNameFlagName, "", "", rpDisplayNameFlagUsage)
	cmd.Flags().StringP(rpOriginsFlagName, "", "", rpOriginsFlagUsage)
	cmd.Flags().StringP(resolverURLFlagName, "", "", resolverURLFlagUsage)
	cmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
}

func getParameters(cmd *cobra.Command) (*parameters, error) {
	hostURL, err := getUserSetVar(cmd, hostURLFlagName, hostURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	rpID, err := getUserSetVar(cmd, rpIDFlagName, rpIDEnvKey, false)
	if err != nil {
		return nil, err
	}

	rpDisplayName, err := getUserSetVar(cmd, rpDisplayNameFlagName, rpDisplayNameEnvKey, true)
	if err != nil {
		return nil, err
	}

	if rpDisplayName == "" {
		rpDisplayName = rpID
	}

	rpOriginsCSV, err := getUserSetVar(cmd, rpOriginsFlagName, rpOriginsEnvKey, false)
	if err != nil {
		return nil, err
	}

	resolverURL, err := getUserSetVar(cmd, resolverURLFlagName, resolverURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
	if err != nil {
		return nil, err
	}

	return &parameters{
		hostURL:       hostURL,
		rpID:          rpID,
		rpDisplayName: rpDisplayName,
		rpOrigins:     strings.Split(rpOriginsCSV, ","),
		resolverURL:   resolverURL,
		logLevel:      logLevel,
	}, nil
}

// getUserSetVar reads a configuration value from the command line flag or,
// when the flag is unset, from the environment.
func getUserSetVar(cmd *cobra.Command, flagName, envKey string, optional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf("get %s flag: %w", flagName, err)
		}

		return value, nil
	}

	if value, ok := os.LookupEnv(envKey); ok {
		return value, nil
	}

	if optional {
		return "", nil
	}

	return "", fmt.Errorf("neither %s (command line flag) nor %s (environment variable) have been set",
		flagName, envKey)
}

func startNode(params *parameters) error {
	if params.logLevel != "" {
		if err := log.SetLevel(params.logLevel); err != nil {
			return err
		}
	}

	provider := mem.NewProvider()

	ceremonies, err := webauthn.NewCeremonies(&webauthn.Config{
		RPID:          params.rpID,
		RPDisplayName: params.rpDisplayName,
		RPOrigins:     params.rpOrigins,
	})
	if err != nil {
		return err
	}

	manager := webauthn.NewManager(ceremonies, provider)

	registry, err := buildRegistry(params.resolverURL)
	if err != nil {
		return err
	}

	operation := rest.New(manager, registry, provider.SpaceStore())

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "Authorization"},
	}).Handler(operation.Router())

	logger.Infof("starting node on %s", params.hostURL)

	return http.ListenAndServe(params.hostURL, handler) //nolint:gosec
}

func buildRegistry(resolverURL string) (*vdr.Registry, error) {
	opts := []vdr.Option{
		vdr.WithResolver(peer.New()),
		vdr.WithResolver(key.New()),
		vdr.WithResolver(web.New()),
	}

	if resolverURL != "" {
		binding, err := httpbinding.New(resolverURL,
			httpbinding.WithAccept(func(method string) bool { return externalMethods[method] }))
		if err != nil {
			return nil, err
		}

		opts = append(opts, vdr.WithResolver(binding))
	}

	return vdr.New(opts...), nil
}
