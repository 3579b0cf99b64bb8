// Package appid holds the application identity: binary name, env prefix and
// config directory name shared by the CLI, config loader and telemetry.
package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName = "murphys"
	EnvPrefix  = "MURPHYS_"
	ConfigName = "murphys"
)

// Get returns the identity of this binary. The context is accepted for
// parity with gofulmen's discovery API.
func Get(_ context.Context) (*appidentity.Identity, error) {
	return &appidentity.Identity{
		BinaryName:  BinaryName,
		EnvPrefix:   EnvPrefix,
		ConfigName:  ConfigName,
		Description: "Murphy's Laws API: laws, votes and submissions",
	}, nil
}
