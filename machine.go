// Package depthcloud turns dense depth images into point clouds.
//
// The numeric core lives in the projection package; the cloudcam package
// wraps it as a Viam camera component. This package holds the shared model
// family and helpers for reaching a live machine from tooling and tests.
package depthcloud

import (
	"context"
	"fmt"
	"os"

	"go.viam.com/rdk/cli"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/robot"
	"go.viam.com/rdk/robot/client"
	"go.viam.com/rdk/robot/framesystem"
	"go.viam.com/rdk/utils"
	"go.viam.com/utils/rpc"
)

// NamespaceFamily is the model family for every model this module registers.
var NamespaceFamily = resource.NewModelFamily("erh", "depthcloud")

// MachineToDependencies flattens a live machine's resources into a
// dependency map, so components from this module can be constructed
// locally against remote cameras.
func MachineToDependencies(machine robot.Robot) (resource.Dependencies, error) {
	deps := resource.Dependencies{}

	for _, n := range machine.ResourceNames() {
		r, err := machine.ResourceByName(n)
		if err != nil {
			return nil, err
		}
		deps[n] = r
	}

	r, ok := machine.(resource.Resource)
	if !ok {
		return nil, fmt.Errorf("machine client isn't a resource.Resource")
	}
	deps[framesystem.PublicServiceName] = r

	return deps, nil
}

// ConnectToMachine dials a machine with api key credentials.
func ConnectToMachine(ctx context.Context, logger logging.Logger, host, apiKeyID, apiKey string) (robot.Robot, error) {
	return client.New(
		ctx,
		host,
		logger,
		client.WithDialOptions(rpc.WithEntityCredentials(
			apiKeyID,
			rpc.Credentials{
				Type:    rpc.CredentialsTypeAPIKey,
				Payload: apiKey,
			},
		)),
	)
}

// ConnectToMachineFromEnv dials using the standard viam module env vars.
func ConnectToMachineFromEnv(ctx context.Context, logger logging.Logger) (robot.Robot, error) {
	params := []string{}
	for _, pp := range []string{utils.MachineFQDNEnvVar, utils.APIKeyIDEnvVar, utils.APIKeyEnvVar} {
		x := os.Getenv(pp)
		if x == "" {
			return nil, fmt.Errorf("no environment variable for %s", pp)
		}
		params = append(params, x)
	}
	return ConnectToMachine(ctx, logger, params[0], params[1], params[2])
}

// ConnectToHostFromCLIToken uses the viam cli token to login to a machine
// with just a hostname. Use "viam login" to set the token up.
func ConnectToHostFromCLIToken(ctx context.Context, host string, logger logging.Logger) (robot.Robot, error) {
	if host == "" {
		return nil, fmt.Errorf("need to specify host")
	}

	c, err := cli.ConfigFromCache(nil)
	if err != nil {
		return nil, err
	}

	dopts, err := c.DialOptions()
	if err != nil {
		return nil, err
	}

	return client.New(
		ctx,
		host,
		logger,
		client.WithDialOptions(dopts...),
	)
}
