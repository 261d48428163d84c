// Package common provides the constants and wire types shared by the
// shutterloop daemon and its clients.
package common

// Environment variable names read outside internal/config.
const (
	// ConfigEnv overrides the config file path.
	ConfigEnv = "SHUTTERLOOP_CONFIG"

	// RPCURLEnv is the control API base URL used by client commands.
	RPCURLEnv = "SHUTTERLOOP_RPC_URL"

	// RPCSecretEnv is the control API bearer token. It is the same variable
	// the daemon reads for rpc.secret.
	RPCSecretEnv = "SHUTTERLOOP_RPC_SECRET"
)

const (
	DefaultConfigPath = "/etc/shutterloop/shutterloop.toml"
	DefaultRPCURL     = "http://127.0.0.1:8637"
)

// Control API paths.
const (
	RPCPath = "/jsonrpc"
	WSPath  = "/jsonrpc/ws"
)
