package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func run(t *testing.T, handler http.HandlerFunc, args ...string) (string, int32, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, env := range []string{"KRUISE_PROXY_SERVER", "KRUISE_PROXY_TOKEN", "KRUISE_PROXY_CLUSTER", "KRUISE_PROXY_LOCALE"} {
		t.Setenv(env, "")
	}

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, "kruisectl", r.Header.Get("User-Agent"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{OutputWriter: buf})
	root.SetArgs(append([]string{"--server", server.URL, "--token", "secret"}, args...))
	err := root.Execute()
	return buf.String(), calls.Load(), err
}

const cloneSets = `{"items":[{"metadata":{"name":"app1","namespace":"ns1"},"spec":{"replicas":2},"status":{"replicas":2,"readyReplicas":2}}]}`

func TestListCloneSetsTable(t *testing.T) {
	out, _, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns1/cloneset", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("pageNum"))
		require.Equal(t, "20", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(cloneSets))
	}, "-C", "c1", "list", "cloneset", "-n", "ns1", "--page", "1", "--page-size", "20")

	require.NoError(t, err)
	require.Contains(t, out, "NAMESPACE")
	require.Contains(t, out, "app1")
}

func TestListAllNamespacesJSON(t *testing.T) {
	out, _, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/clonesets", r.URL.Path)
		require.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(cloneSets))
	}, "-C", "c1", "-o", "json", "list", "cs", "-A")

	require.NoError(t, err)
	var decoded struct {
		Items []struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Items, 1)
	require.Equal(t, "app1", decoded.Items[0].Metadata.Name)
}

func TestListPartialPaginationSendsNothing(t *testing.T) {
	_, calls, err := run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "list", "cloneset", "--page", "2")
	require.ErrorIs(t, err, proxy.ErrInvalidArgument)
	require.Zero(t, calls)
}

func TestListRequiresCluster(t *testing.T) {
	_, calls, err := run(t, func(http.ResponseWriter, *http.Request) {}, "list", "pods")
	require.ErrorContains(t, err, "no cluster selected")
	require.Zero(t, calls)
}

func TestUnknownKind(t *testing.T) {
	_, _, err := run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "list", "deployments")
	require.ErrorContains(t, err, "unknown kind")
}

func TestGetNodeYAML(t *testing.T) {
	out, _, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/proxy/c1/k8s/api/v1/nodes/n1", r.URL.Path)
		_, _ = w.Write([]byte(`{"metadata":{"name":"n1"},"spec":{"unschedulable":true}}`))
	}, "-C", "c1", "-o", "yaml", "get", "node", "n1")

	require.NoError(t, err)
	require.Contains(t, out, "name: n1")
	require.Contains(t, out, "unschedulable: true")
}

func TestScale(t *testing.T) {
	out, calls, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns1/cloneset/app1/scale", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"spec":{"replicas":5}}`, string(body))
		_, _ = w.Write([]byte(`{"spec":{"replicas":5}}`))
	}, "-C", "c1", "--locale", "zh-CN", "scale", "cloneset", "app1", "-n", "ns1", "--replicas", "5")

	require.NoError(t, err)
	require.EqualValues(t, 1, calls)
	require.Equal(t, "已将命名空间 ns1 中的 CloneSet app1 扩缩容至 5 个副本\n", out)
}

func TestScaleRejectsPods(t *testing.T) {
	_, calls, err := run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "scale", "pod", "p", "--replicas", "1")
	require.ErrorContains(t, err, "does not support scaling")
	require.Zero(t, calls)
}

func TestPatchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"op":"replace","path":"/spec/replicas","value":1}]`), 0o600))

	out, _, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json-patch+json", r.Header.Get("Content-Type"))
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1beta1/namespaces/default/statefulsets/db", r.URL.Path)
		_, _ = w.Write([]byte(`{"metadata":{"name":"db"}}`))
	}, "-C", "c1", "patch", "asts", "db", "--patch-file", path, "--type", "json")

	require.NoError(t, err)
	require.Equal(t, "advancedstatefulset/db: Updated successfully\n", out)
}

func TestPatchValidation(t *testing.T) {
	_, calls, err := run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "patch", "cs", "app1")
	require.Error(t, err)
	_, _, err = run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "patch", "cs", "app1", "-p", "{bad")
	require.ErrorContains(t, err, "not valid JSON")
	_, _, err = run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "patch", "cs", "app1", "-p", "{}", "--type", "apply")
	require.ErrorIs(t, err, proxy.ErrInvalidArgument)
	require.Zero(t, calls)
}

func TestRemoteErrorSurfaces(t *testing.T) {
	_, _, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":403,"msg":"no permission on cluster c1"}`))
	}, "-C", "c1", "get", "cloneset", "app1")

	require.Equal(t, http.StatusForbidden, proxy.StatusCode(err))
	require.ErrorContains(t, err, "no permission on cluster c1")
}

func TestKinds(t *testing.T) {
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{OutputWriter: buf})
	root.SetArgs([]string{"kinds"})
	require.NoError(t, root.Execute())

	out := buf.String()
	require.Contains(t, out, "CloneSet")
	require.Contains(t, out, "apps.kruise.io/v1beta1")
	require.Equal(t, 6, len(strings.Split(strings.TrimSpace(out), "\n")))
}

func TestInvalidOutputFormat(t *testing.T) {
	_, _, err := run(t, func(http.ResponseWriter, *http.Request) {}, "-C", "c1", "-o", "xml", "list", "pods")
	require.ErrorContains(t, err, "unknown output format")
}
