/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestStartCmdFlags(t *testing.T) {
	cmd := New()

	require.Equal(t, "start", cmd.Use)

	for _, flagName := range []string{
		hostURLFlagName, rpIDFlagName, rpDisplayNameFlagName,
		rpOriginsFlagName, resolverURLFlagName, logLevelFlagName,
	} {
		require.NotNil(t, cmd.Flags().Lookup(flagName), "missing flag %s", flagName)
	}
}

func TestStartCmdMissingHostURL(t *testing.T) {
	cmd := New()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), hostURLFlagName)
}

func TestStartCmdMissingRPID(t *testing.T) {
	cmd := New()
	cmd.SetArgs([]string{"--" + hostURLFlagName, "localhost:8470"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), rpIDFlagName)
}

func TestStartCmdEnvFallback(t *testing.T) {
	t.Setenv(hostURLEnvKey, "localhost:8470")

	cmd := New()

	params, err := getParameters(withRequired(cmd))
	require.NoError(t, err)
	require.Equal(t, "localhost:8470", params.hostURL)
	require.Equal(t, "example.com", params.rpID)
	// Display name falls back to the RP id.
	require.Equal(t, "example.com", params.rpDisplayName)
}

func TestStartCmdBadLogLevel(t *testing.T) {
	err := startNode(&parameters{
		hostURL:   "localhost:8470",
		rpID:      "example.com",
		rpOrigins: []string{"https://example.com"},
		logLevel:  "chatty",
	})
	require.Error(t, err)
}

func TestBuildRegistry(t *testing.T) {
	t.Run("without external resolver", func(t *testing.T) {
		registry, err := buildRegistry("")
		require.NoError(t, err)
		require.NotNil(t, registry)
	})

	t.Run("with external resolver", func(t *testing.T) {
		registry, err := buildRegistry("https://resolver.example.com/1.0/identifiers")
		require.NoError(t, err)
		require.NotNil(t, registry)
	})
}

func withRequired(cmd *cobra.Command) *cobra.Command {
	flags := [][2]string{
		{rpIDFlagName, "example.com"},
		{rpOriginsFlagName, "https://example.com"},
	}

	for _, pair := range flags {
		_ = cmd.Flags().Set(pair[0], pair[1])
	}

	return cmd
}
