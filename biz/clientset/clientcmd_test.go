package clientset

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/beastpu/kruise-proxy-mcp/biz/config"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func writeKubeconfig(t *testing.T, server, currentContext string) string {
	t.Helper()
	return writeKubeconfigWithCA(t, server, nil, currentContext)
}

func writeKubeconfigWithCA(t *testing.T, server string, caData []byte, currentContext string) string {
	t.Helper()
	cfg := clientcmdapi.NewConfig()
	cfg.Clusters["console"] = &clientcmdapi.Cluster{Server: server, CertificateAuthorityData: caData}
	cfg.Clusters["staging"] = &clientcmdapi.Cluster{Server: "https://staging.example.com"}
	cfg.AuthInfos["admin"] = &clientcmdapi.AuthInfo{Token: "console-token"}
	cfg.Contexts["console-admin"] = &clientcmdapi.Context{Cluster: "console", AuthInfo: "admin", Namespace: "kruise"}
	cfg.Contexts["staging-admin"] = &clientcmdapi.Context{Cluster: "staging", AuthInfo: "admin"}
	cfg.CurrentContext = currentContext

	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, clientcmd.WriteToFile(*cfg, path))
	return path
}

// headerRecorder keeps the last request's headers for assertions on the test goroutine.
type headerRecorder struct {
	mu     sync.Mutex
	path   string
	header http.Header
}

func (h *headerRecorder) handler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.path = r.URL.Path
		h.header = r.Header.Clone()
		h.mu.Unlock()
		_, _ = w.Write([]byte(body))
	}
}

func (h *headerRecorder) last() (string, http.Header) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path, h.header
}

func TestValidateKubeconfig(t *testing.T) {
	p := NewProvider()

	require.Error(t, p.ValidateKubeconfig(filepath.Join(t.TempDir(), "missing")))

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, []byte("apiVersion: v1\nkind: Config\n"), 0o600))
	require.Error(t, p.ValidateKubeconfig(empty))

	require.NoError(t, p.ValidateKubeconfig(writeKubeconfig(t, "https://console.example.com", "console-admin")))
}

func TestCurrentContextFallsBackToFirst(t *testing.T) {
	p := NewProvider(WithKubeconfigPath(writeKubeconfig(t, "https://console.example.com", "")))

	current, err := p.CurrentContext()
	require.NoError(t, err)
	require.Equal(t, "console-admin", current)
}

func TestContexts(t *testing.T) {
	p := NewProvider(WithKubeconfigPath(writeKubeconfig(t, "https://console.example.com", "staging-admin")))

	infos, err := p.Contexts()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "console-admin", infos[0].Name)
	require.Equal(t, "kruise", infos[0].Namespace)
	require.Equal(t, "https://console.example.com", infos[0].Server)
	require.False(t, infos[0].Current)
	require.True(t, infos[1].Current)
}

func TestSwitchContextPersists(t *testing.T) {
	path := writeKubeconfig(t, "https://console.example.com", "console-admin")
	p := NewProvider(WithKubeconfigPath(path))

	changed, err := p.SwitchContext("console-admin")
	require.NoError(t, err)
	require.False(t, changed)

	_, err = p.SwitchContext("missing")
	require.Error(t, err)

	changed, err = p.SwitchContext("staging-admin")
	require.NoError(t, err)
	require.True(t, changed)

	reloaded, err := clientcmd.LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "staging-admin", reloaded.CurrentContext)
}

func TestSetKubeconfigPathSelectsFirstContext(t *testing.T) {
	path := writeKubeconfig(t, "https://console.example.com", "")
	p := NewProvider(WithContext("stale"))

	current, err := p.SetKubeconfigPath(path)
	require.NoError(t, err)
	require.Equal(t, "console-admin", current)
	require.Equal(t, path, p.KubeconfigPath())

	reloaded, err := clientcmd.LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "console-admin", reloaded.CurrentContext)
}

func TestClientFromKubeconfig(t *testing.T) {
	rec := &headerRecorder{}
	server := httptest.NewTLSServer(rec.handler(`{"items":[]}`))
	defer server.Close()
	ca := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})

	p := NewProvider(
		WithKubeconfigPath(writeKubeconfigWithCA(t, server.URL, ca, "console-admin")),
		WithUserAgent("kruise-test"),
	)
	c, err := p.Client()
	require.NoError(t, err)

	again, err := p.Client()
	require.NoError(t, err)
	require.Same(t, c, again)

	_, err = proxy.NewCloneSetClient(c).List(context.Background(), "c1", proxy.ListOptions{})
	require.NoError(t, err)
	path, header := rec.last()
	require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/clonesets", path)
	require.Equal(t, "Bearer console-token", header.Get("Authorization"))
	require.Equal(t, "kruise-test", header.Get("User-Agent"))

	p.ClearClientCache()
	rebuilt, err := p.Client()
	require.NoError(t, err)
	require.NotSame(t, c, rebuilt)
}

func TestClientFromKubeconfigRejectsUnknownCA(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	p := NewProvider(WithKubeconfigPath(writeKubeconfig(t, server.URL, "console-admin")))
	c, err := p.Client()
	require.NoError(t, err)

	_, err = proxy.NewCloneSetClient(c).List(context.Background(), "c1", proxy.ListOptions{})
	require.ErrorIs(t, err, proxy.ErrNetwork)
}

func TestClientFromEndpoint(t *testing.T) {
	rec := &headerRecorder{}
	server := httptest.NewServer(rec.handler(`{"items":[]}`))
	defer server.Close()

	p := NewProvider(WithEndpoint(Endpoint{Server: server.URL, Token: "static-token"}))
	c, err := p.Client()
	require.NoError(t, err)
	require.Equal(t, server.URL, c.Server())

	_, err = proxy.NewNodeClient(c).List(context.Background(), "c1", proxy.ListOptions{})
	require.NoError(t, err)
	_, header := rec.last()
	require.Equal(t, "Bearer static-token", header.Get("Authorization"))
}

func TestClientFromTLSEndpoint(t *testing.T) {
	rec := &headerRecorder{}
	server := httptest.NewTLSServer(rec.handler(`{"items":[]}`))
	defer server.Close()

	ca := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(ca, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw}), 0o600))

	for name, endpoint := range map[string]Endpoint{
		"ca file":  {Server: server.URL, Token: "tls-token", CAFile: ca},
		"insecure": {Server: server.URL, Token: "tls-token", InsecureSkipTLSVerify: true},
	} {
		t.Run(name, func(t *testing.T) {
			c, err := NewProvider(WithEndpoint(endpoint)).Client()
			require.NoError(t, err)

			_, err = proxy.NewPodClient(c).List(context.Background(), "c1", proxy.ListOptions{})
			require.NoError(t, err)
			_, header := rec.last()
			require.Equal(t, "Bearer tls-token", header.Get("Authorization"))
		})
	}
}

func TestEndpointBadCAFile(t *testing.T) {
	ca := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a cert"), 0o600))

	p := NewProvider(WithEndpoint(Endpoint{Server: "https://console.example.com", CAFile: ca}))
	_, err := p.Client()
	require.Error(t, err)
}

func TestNormalizeServer(t *testing.T) {
	require.Equal(t, "https://console:6443", normalizeServer("console:6443"))
	require.Equal(t, "http://console", normalizeServer("http://console"))
}

func TestFromConfig(t *testing.T) {
	path := writeKubeconfig(t, "https://console.example.com", "")

	cfg := config.DefaultConfig()
	cfg.Kubeconfig = path
	cfg.Context = "staging-admin"
	p := FromConfig(&cfg)
	current, err := p.CurrentContext()
	require.NoError(t, err)
	require.Equal(t, "staging-admin", current)
	require.Equal(t, path, p.KubeconfigPath())

	cfg.Server = "https://override.example.com"
	c, err := FromConfig(&cfg).Client()
	require.NoError(t, err)
	require.Equal(t, "https://override.example.com", c.Server())
}
