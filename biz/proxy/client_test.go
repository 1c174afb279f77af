package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := New(WithServer(server.URL), WithDoer(server.Client()))
	require.NoError(t, err)
	return client, &calls
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name:    "missing server",
			opts:    []Option{},
			wantErr: true,
		},
		{
			name:    "server without scheme",
			opts:    []Option{WithServer("console.local")},
			wantErr: true,
		},
		{
			name:    "nil doer",
			opts:    []Option{WithServer("https://console.local"), WithDoer(nil)},
			wantErr: true,
		},
		{
			name: "valid config",
			opts: []Option{
				WithServer("https://console.local/base/"),
				WithToken("test-token"),
				WithUserAgent("test-agent"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
			}
		})
	}
}

func TestListWithoutPaginationOmitsPageParams(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/clonesets", r.URL.Path)
		require.False(t, r.URL.Query().Has("pageNum"))
		require.False(t, r.URL.Query().Has("pageSize"))
		require.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	var out map[string]any
	require.NoError(t, client.List(context.Background(), "c1", CloneSets, ListOptions{}, &out))
	require.NoError(t, client.List(context.Background(), "c1", CloneSets, ListOptions{Page: &PageRequest{}}, &out))
	require.EqualValues(t, 2, calls.Load())
}

func TestListWithPagination(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("pageNum"))
		require.Equal(t, "10", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"items":[{"metadata":{"name":"a"}}]}`))
	})

	list, err := NewCloneSetClient(client).List(context.Background(), "c1", ListOptions{Page: &PageRequest{PageNum: 2, PageSize: 10}})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "a", list.Items[0].Name)
}

func TestPartialPaginationFailsBeforeRequest(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, page := range []*PageRequest{{PageNum: 1}, {PageSize: 20}} {
		err := client.List(context.Background(), "c1", CloneSets, ListOptions{Page: page}, nil)
		require.ErrorIs(t, err, ErrInvalidArgument)

		var invalid *InvalidArgumentError
		require.True(t, errors.As(err, &invalid))
		require.Equal(t, "page", invalid.Field)
	}
	require.Zero(t, calls.Load())
}

func TestListByNamespace(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns1/cloneset", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[{"metadata":{"name":"app1","namespace":"ns1"}}]}`))
	})

	err := client.ListByNamespace(context.Background(), "c1", CloneSets, "", ListOptions{}, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Zero(t, calls.Load())

	list, err := NewCloneSetClient(client).ListByNamespace(context.Background(), "c1", "ns1", ListOptions{})
	require.NoError(t, err)
	require.Equal(t, "ns1", list.Items[0].Namespace)
}

func TestListByNamespaceRejectsClusterScoped(t *testing.T) {
	client, calls := newTestClient(t, func(http.ResponseWriter, *http.Request) {})

	_, err := NewNodeClient(client).ListByNamespace(context.Background(), "c1", "ns1", ListOptions{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "namespace", invalid.Field)
	require.Zero(t, calls.Load())
}

func TestScaleSendsSinglePatch(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns1/cloneset/app1/scale", r.URL.Path)
		require.Equal(t, string(types.MergePatchType), r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"replicas":3}`, string(body))

		_, _ = w.Write([]byte(`{"kind":"Scale","metadata":{"name":"app1"},"spec":{"replicas":3}}`))
	})

	scale, err := NewCloneSetClient(client).Scale(context.Background(), "c1", "ns1", "app1", map[string]int{"replicas": 3})
	require.NoError(t, err)
	require.EqualValues(t, 3, scale.Spec.Replicas)
	require.EqualValues(t, 1, calls.Load())
}

func TestPatchContentType(t *testing.T) {
	tests := []struct {
		name      string
		patchType types.PatchType
		want      string
		wantErr   bool
	}{
		{name: "default merge", patchType: "", want: "application/merge-patch+json"},
		{name: "strategic", patchType: types.StrategicMergePatchType, want: "application/strategic-merge-patch+json"},
		{name: "json patch", patchType: types.JSONPatchType, want: "application/json-patch+json"},
		{name: "apply not supported", patchType: types.ApplyPatchType, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns1/cloneset/app1", r.URL.Path)
				require.Equal(t, tt.want, r.Header.Get("Content-Type"))
				body, _ := io.ReadAll(r.Body)
				require.JSONEq(t, `{"spec":{"paused":true}}`, string(body))
				_, _ = w.Write([]byte(`{"metadata":{"name":"app1"}}`))
			})

			cs, err := NewCloneSetClient(client).Patch(context.Background(), "c1", "ns1", "app1", []byte(`{"spec":{"paused":true}}`), tt.patchType)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				require.Zero(t, calls.Load())
				return
			}
			require.NoError(t, err)
			require.Equal(t, "app1", cs.Name)
		})
	}
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "kubernetes status",
			status:  http.StatusNotFound,
			body:    `{"kind":"Status","status":"Failure","message":"clonesets.apps.kruise.io \"app1\" not found","code":404}`,
			wantMsg: `clonesets.apps.kruise.io "app1" not found`,
		},
		{
			name:    "console envelope",
			status:  http.StatusBadRequest,
			body:    `{"success":false,"msg":"cluster c9 not found"}`,
			wantMsg: "cluster c9 not found",
		},
		{
			name:    "plain text",
			status:  http.StatusBadGateway,
			body:    "upstream unavailable\n",
			wantMsg: "upstream unavailable",
		},
		{
			name:    "empty body",
			status:  http.StatusConflict,
			wantMsg: "409 Conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewCloneSetClient(client).Get(context.Background(), "c1", "ns1", "app1")
			require.Error(t, err)
			require.ErrorIs(t, err, ErrRemote)
			require.NotErrorIs(t, err, ErrDecode)

			var remote *RemoteError
			require.True(t, errors.As(err, &remote))
			require.Equal(t, tt.status, remote.StatusCode)
			require.Equal(t, tt.wantMsg, remote.Message)
			require.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestNotFoundIsRemoteError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	list, err := NewCloneSetClient(client).List(context.Background(), "unknown", ListOptions{})
	require.Nil(t, list)
	require.True(t, IsNotFound(err))
	require.False(t, IsConflict(err))
}

func TestDecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})

	_, err := NewCloneSetClient(client).List(context.Background(), "c1", ListOptions{})
	require.ErrorIs(t, err, ErrDecode)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Contains(t, decodeErr.URL, "/api/v1/proxy/c1/")
}

func TestNetworkErrorCarriesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client, err := New(WithServer(addr))
	require.NoError(t, err)

	err = client.Get(context.Background(), "c1", CloneSets, "ns1", "app1", nil)
	require.ErrorIs(t, err, ErrNetwork)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.MethodGet, netErr.Method)
	require.Equal(t, addr+"/api/v1/proxy/c1/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns1/cloneset/app1", netErr.URL)
}

func TestContextCancellationIsForwarded(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.List(ctx, "c1", CloneSets, ListOptions{}, nil)
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "/console/api/v1/proxy/c1/k8s/api/v1/nodes", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))
	defer server.Close()

	client, err := New(
		WithServer(server.URL+"/console/"),
		WithToken("test-token"),
		WithUserAgent("test-agent"),
	)
	require.NoError(t, err)

	list, err := NewNodeClient(client).List(context.Background(), "c1", ListOptions{})
	require.NoError(t, err)
	require.Empty(t, list.Items)
}

func TestEscapedSegmentsReachServer(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/proxy/team%2Fa/k8s/apis/apps.kruise.io/v1alpha1/namespaces/ns%20x/cloneset/app%3F1", r.URL.EscapedPath())
		require.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := NewCloneSetClient(client).Get(context.Background(), "team/a", "ns x", "app?1")
	require.NoError(t, err)
}

func TestInvalidTargets(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	require.ErrorIs(t, client.List(ctx, "", CloneSets, ListOptions{}, nil), ErrInvalidArgument)
	require.ErrorIs(t, client.List(ctx, "..", CloneSets, ListOptions{}, nil), ErrInvalidArgument)
	require.ErrorIs(t, client.List(ctx, "c1", Descriptor{Resource: "x"}, ListOptions{}, nil), ErrInvalidArgument)
	require.ErrorIs(t, client.Get(ctx, "c1", CloneSets, "ns", "", nil), ErrInvalidArgument)
	require.ErrorIs(t, client.Get(ctx, "c1", CloneSets, "", "app", nil), ErrInvalidArgument)
	require.ErrorIs(t, client.Scale(ctx, "c1", CloneSets, "ns", "app", nil, nil), ErrInvalidArgument)
	require.ErrorIs(t, client.Patch(ctx, "c1", CloneSets, "ns", "app", []byte{}, "", nil), ErrInvalidArgument)
	_, err := client.GetSubresource(ctx, "c1", Pods, "ns", "pod", "", nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Zero(t, calls.Load())
}

func TestGetSubresourceReturnsRawBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/proxy/c1/k8s/api/v1/namespaces/ns/pods/web-0/log", r.URL.Path)
		require.Equal(t, "app", r.URL.Query().Get("container"))
		_, _ = w.Write([]byte("line 1\nline 2\n"))
	})

	out, err := client.GetSubresource(context.Background(), "c1", Pods, "ns", "web-0", "log", map[string][]string{"container": {"app"}})
	require.NoError(t, err)
	require.Equal(t, "line 1\nline 2\n", string(out))
}

func TestReplicasPatch(t *testing.T) {
	patch, err := ReplicasPatch(5)
	require.NoError(t, err)
	require.JSONEq(t, `{"spec":{"replicas":5}}`, string(patch))
}
