package cmd

import (
	"context"

	shared "github.com/shutterloop/shutterloop/common"
	"github.com/shutterloop/shutterloop/internal/config"
	"github.com/shutterloop/shutterloop/pkg/shutterctl"
)

// loadConfig reads the config named by --config, or the default path if it
// exists.
func loadConfig() (*config.Config, error) {
	path, optional := configPath, false
	if path == "" {
		path, optional = shared.DefaultConfigPath, true
	}
	return config.Load(config.LoadOptions{Path: path, Optional: optional, EnvFile: envFile})
}

// newClient connects to the daemon named by --rpc and --secret, filling
// either from the config file when unset. A token saved by login is the
// last resort for the secret.
var newClient = func() (*shutterctl.Client, error) {
	url, secret := rpcURL, rpcSecret
	if url == "" || secret == "" {
		if cfg, err := loadConfig(); err == nil {
			if url == "" {
				url = "http://" + cfg.RPC.Listen
			}
			if secret == "" {
				secret = cfg.RPC.Secret
			}
		}
	}
	if url == "" {
		url = shared.DefaultRPCURL
	}
	if secret == "" {
		secret, _ = tokenStore().Get()
	}
	return shutterctl.NewClient(url, secret, nil)
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DEF_CALL_TIMEOUT)
}
