package clientset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

// Endpoint addresses the console directly, without a kubeconfig.
type Endpoint struct {
	Server                string
	Token                 string
	CAFile                string
	InsecureSkipTLSVerify bool
	Timeout               time.Duration
}

// ContextInfo describes one kubeconfig context.
type ContextInfo struct {
	Name      string
	Cluster   string
	User      string
	Namespace string
	Server    string
	Current   bool
}

// Provider resolves the console endpoint from a static Endpoint or from the
// current kubeconfig context and caches the resulting proxy client.
type Provider struct {
	mu                   sync.Mutex
	customKubeconfigPath string
	currentContext       string
	endpoint             *Endpoint
	clientPointer        atomic.Pointer[proxy.Client]
	log                  *zap.SugaredLogger
	userAgent            string
}

type Option func(*Provider)

func WithKubeconfigPath(path string) Option {
	return func(p *Provider) {
		p.customKubeconfigPath = path
	}
}

func WithContext(name string) Option {
	return func(p *Provider) {
		p.currentContext = name
	}
}

func WithEndpoint(endpoint Endpoint) Option {
	return func(p *Provider) {
		if endpoint.Server != "" {
			p.endpoint = &endpoint
		}
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(p *Provider) {
		p.userAgent = userAgent
	}
}

func NewProvider(opts ...Option) *Provider {
	p := &Provider{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateKubeconfig checks that path exists and holds at least one cluster,
// context and user.
func (p *Provider) ValidateKubeconfig(path string) error {
	p.log.Debugw("validating kubeconfig", "path", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("kubeconfig file does not exist: %s", path)
	}

	config, err := clientcmd.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("invalid kubeconfig file format: %w", err)
	}

	if !isValidConfig(config) {
		return errors.New("invalid kubeconfig configuration, must contain at least one cluster, context, and user")
	}

	p.log.Debugw("kubeconfig validated", "path", path,
		"clusters", len(config.Clusters), "contexts", len(config.Contexts), "users", len(config.AuthInfos))
	return nil
}

func isValidConfig(config *clientcmdapi.Config) bool {
	return len(config.Clusters) > 0 && len(config.Contexts) > 0 && len(config.AuthInfos) > 0
}

func (p *Provider) loadingRules() *clientcmd.ClientConfigLoadingRules {
	if p.customKubeconfigPath != "" {
		return &clientcmd.ClientConfigLoadingRules{ExplicitPath: p.customKubeconfigPath}
	}
	return clientcmd.NewDefaultClientConfigLoadingRules()
}

// KubeConfig loads the raw kubeconfig.
func (p *Provider) KubeConfig() (*clientcmdapi.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kubeConfigLocked()
}

func (p *Provider) kubeConfigLocked() (*clientcmdapi.Config, error) {
	if p.customKubeconfigPath != "" {
		if _, err := clientcmd.LoadFromFile(p.customKubeconfigPath); err != nil {
			return nil, fmt.Errorf("unable to load custom kubeconfig file(%s): %w", p.customKubeconfigPath, err)
		}
	}
	config, err := p.loadingRules().GetStartingConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading kubeconfig: %w", err)
	}
	return config, nil
}

// CurrentContext returns the selected context, falling back to the
// kubeconfig's current-context and then to the first context by name.
func (p *Provider) CurrentContext() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentContextLocked()
}

func (p *Provider) currentContextLocked() (string, error) {
	if p.currentContext != "" {
		return p.currentContext, nil
	}
	config, err := p.kubeConfigLocked()
	if err != nil {
		return "", err
	}
	current := config.CurrentContext
	if current == "" && len(config.Contexts) > 0 {
		current = sortedContextNames(config)[0]
		p.log.Debugw("kubeconfig has no current context, using first available", "context", current)
	}
	p.currentContext = current
	return current, nil
}

// Contexts lists kubeconfig contexts sorted by name.
func (p *Provider) Contexts() ([]ContextInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	config, err := p.kubeConfigLocked()
	if err != nil {
		return nil, err
	}
	current, err := p.currentContextLocked()
	if err != nil {
		return nil, err
	}
	infos := make([]ContextInfo, 0, len(config.Contexts))
	for _, name := range sortedContextNames(config) {
		ctx := config.Contexts[name]
		info := ContextInfo{
			Name:      name,
			Cluster:   ctx.Cluster,
			User:      ctx.AuthInfo,
			Namespace: ctx.Namespace,
			Current:   name == current,
		}
		if cluster, ok := config.Clusters[ctx.Cluster]; ok {
			info.Server = cluster.Server
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// SetKubeconfigPath validates and switches to a new kubeconfig file and
// returns the context that becomes current. A file without current-context
// is rewritten to select its first context.
func (p *Provider) SetKubeconfigPath(path string) (string, error) {
	if err := p.ValidateKubeconfig(path); err != nil {
		return "", fmt.Errorf("kubeconfig validation failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.customKubeconfigPath = path
	p.currentContext = ""
	p.clientPointer.Store(nil)

	config, err := p.kubeConfigLocked()
	if err != nil {
		return "", fmt.Errorf("could not reload kubeconfig file: %w", err)
	}
	if config.CurrentContext != "" {
		p.currentContext = config.CurrentContext
		return p.currentContext, nil
	}

	first := sortedContextNames(config)[0]
	config.CurrentContext = first
	if err := clientcmd.ModifyConfig(p.loadingRules(), *config, true); err != nil {
		return "", fmt.Errorf("failed to save kubeconfig file: %w", err)
	}
	p.currentContext = first
	p.log.Infow("switched to first available context", "context", first)
	return first, nil
}

// SwitchContext persists name as the kubeconfig current-context. It reports
// false when name was already current.
func (p *Provider) SwitchContext(name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	config, err := p.kubeConfigLocked()
	if err != nil {
		return false, err
	}
	if _, exists := config.Contexts[name]; !exists {
		return false, fmt.Errorf("context '%s' does not exist in kubeconfig", name)
	}
	current, err := p.currentContextLocked()
	if err != nil {
		return false, err
	}
	if current == name {
		return false, nil
	}

	config.CurrentContext = name
	if err := clientcmd.ModifyConfig(p.loadingRules(), *config, true); err != nil {
		return false, fmt.Errorf("failed to modify kubeconfig: %w", err)
	}
	p.currentContext = name
	p.clientPointer.Store(nil)
	p.log.Infow("switched context", "context", name)
	return true, nil
}

func (p *Provider) KubeconfigPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.customKubeconfigPath
}

// RESTConfig returns the client configuration of the current context.
func (p *Provider) RESTConfig() (*rest.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restConfigLocked()
}

func (p *Provider) restConfigLocked() (*rest.Config, error) {
	contextName, err := p.currentContextLocked()
	if err != nil {
		return nil, err
	}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		p.loadingRules(),
		&clientcmd.ConfigOverrides{CurrentContext: contextName},
	)
	config, err := loader.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig for context %s: %w", contextName, err)
	}
	return config, nil
}

// Client returns the cached proxy client, building it on first use.
func (p *Provider) Client() (*proxy.Client, error) {
	if c := p.clientPointer.Load(); c != nil {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.clientPointer.Load(); c != nil {
		return c, nil
	}

	var (
		c   *proxy.Client
		err error
	)
	if p.endpoint != nil {
		c, err = p.endpointClient(*p.endpoint)
	} else {
		c, err = p.kubeconfigClient()
	}
	if err != nil {
		return nil, err
	}
	p.clientPointer.Store(c)
	return c, nil
}

// ClearClientCache drops the cached client so the next call rebuilds it.
func (p *Provider) ClearClientCache() {
	p.clientPointer.Store(nil)
	p.log.Debug("proxy client cache cleared")
}

func (p *Provider) kubeconfigClient() (*proxy.Client, error) {
	config, err := p.restConfigLocked()
	if err != nil {
		return nil, err
	}
	p.log.Debugw("building proxy client from kubeconfig", "server", config.Host)
	return p.newClient(config)
}

func (p *Provider) endpointClient(e Endpoint) (*proxy.Client, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	config := &rest.Config{
		Host:        normalizeServer(e.Server),
		BearerToken: e.Token,
		TLSClientConfig: rest.TLSClientConfig{
			CAFile:   e.CAFile,
			Insecure: e.InsecureSkipTLSVerify,
		},
		Timeout:   timeout,
		UserAgent: p.userAgent,
	}
	p.log.Debugw("building proxy client from endpoint", "server", e.Server)
	return p.newClient(config)
}

// newClient wraps the client-go transport for config (TLS, bearer token,
// exec plugins, timeout) in a proxy client addressing config.Host.
func (p *Provider) newClient(config *rest.Config) (*proxy.Client, error) {
	httpClient, err := rest.HTTPClientFor(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client for %s: %w", config.Host, err)
	}
	return proxy.New(
		proxy.WithServer(normalizeServer(config.Host)),
		proxy.WithDoer(httpClient),
		proxy.WithUserAgent(p.userAgent),
		proxy.WithLogger(p.log),
	)
}

func normalizeServer(server string) string {
	if !strings.Contains(server, "://") {
		return "https://" + server
	}
	return server
}

func sortedContextNames(config *clientcmdapi.Config) []string {
	names := make([]string, 0, len(config.Contexts))
	for name := range config.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
