package clientset

import (
	"github.com/beastpu/kruise-proxy-mcp/biz/config"
)

// FromConfig builds a Provider from the loaded configuration. A configured
// server takes precedence over the kubeconfig; extra options are applied last.
func FromConfig(cfg *config.Config, opts ...Option) *Provider {
	base := []Option{
		WithKubeconfigPath(cfg.Kubeconfig),
		WithContext(cfg.Context),
		WithEndpoint(Endpoint{
			Server:                cfg.Server,
			Token:                 cfg.Token,
			CAFile:                cfg.CAFile,
			InsecureSkipTLSVerify: cfg.InsecureSkipTLSVerify,
			Timeout:               cfg.Timeout,
		}),
	}
	return NewProvider(append(base, opts...)...)
}
