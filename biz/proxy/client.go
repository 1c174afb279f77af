package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/types"

	"github.com/beastpu/kruise-proxy-mcp/biz/metrics"
)

// Doer sends HTTP requests. *http.Client and client-go's rest.HTTPClientFor
// result both satisfy it; auth, TLS and timeouts are its concern.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against the console proxy. It keeps no state across
// calls and is safe for concurrent use when its Doer is.
type Client struct {
	baseURL   *url.URL
	doer      Doer
	token     string
	userAgent string
	log       *zap.SugaredLogger
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		doer:      &http.Client{Timeout: 30 * time.Second},
		userAgent: "kruise-proxy-mcp",
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("server is required")
	}
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid server %q: scheme and host are required", server)
		}
		parsed.RawQuery = ""
		parsed.Fragment = ""
		c.baseURL = parsed
		return nil
	}
}

// WithDoer injects the transport used for every request.
func WithDoer(doer Doer) Option {
	return func(c *Client) error {
		if doer == nil {
			return errors.New("doer must not be nil")
		}
		c.doer = doer
		return nil
	}
}

// WithToken sets a bearer token. Leave it empty when the Doer already
// authenticates requests.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// Server returns the console base URL.
func (c *Client) Server() string {
	return c.baseURL.String()
}

// List fetches the cluster-wide collection of d into out.
func (c *Client) List(ctx context.Context, cluster string, d Descriptor, opts ListOptions, out any) error {
	if err := validateTarget(cluster, d); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	return c.do(ctx, request{
		method:  http.MethodGet,
		cluster: cluster,
		desc:    d,
		path:    BuildPath(cluster, d, "", "", ""),
		query:   opts.query(),
	}, out)
}

// ListByNamespace fetches the collection of d in namespace into out. Cluster
// scoped descriptors have no namespaced collection and are rejected.
func (c *Client) ListByNamespace(ctx context.Context, cluster string, d Descriptor, namespace string, opts ListOptions, out any) error {
	if err := validateTarget(cluster, d); err != nil {
		return err
	}
	if d.ClusterScoped {
		return invalidArgument("namespace", fmt.Sprintf("%s is cluster scoped", d.Resource))
	}
	if err := validateSegment("namespace", namespace); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	return c.do(ctx, request{
		method:  http.MethodGet,
		cluster: cluster,
		desc:    d,
		path:    BuildPath(cluster, d, namespace, "", ""),
		query:   opts.query(),
	}, out)
}

// Get fetches a single object into out.
func (c *Client) Get(ctx context.Context, cluster string, d Descriptor, namespace, name string, out any) error {
	if err := validateObject(cluster, d, namespace, name); err != nil {
		return err
	}
	return c.do(ctx, request{
		method:  http.MethodGet,
		cluster: cluster,
		desc:    d,
		path:    BuildPath(cluster, d, namespace, name, ""),
	}, out)
}

// GetSubresource returns the raw body of an object subresource such as a pod log.
func (c *Client) GetSubresource(ctx context.Context, cluster string, d Descriptor, namespace, name, subresource string, query url.Values) ([]byte, error) {
	if err := validateObject(cluster, d, namespace, name); err != nil {
		return nil, err
	}
	if err := validateSegment("subresource", subresource); err != nil {
		return nil, err
	}
	var raw []byte
	err := c.do(ctx, request{
		method:  http.MethodGet,
		cluster: cluster,
		desc:    d,
		path:    BuildPath(cluster, d, namespace, name, subresource),
		query:   query,
		accept:  "*/*",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Scale sends payload verbatim as a merge patch to the object's scale
// subresource. Replica bounds are the server's decision.
func (c *Client) Scale(ctx context.Context, cluster string, d Descriptor, namespace, name string, payload any, out any) error {
	if err := validateObject(cluster, d, namespace, name); err != nil {
		return err
	}
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPatch,
		cluster:     cluster,
		desc:        d,
		path:        BuildPath(cluster, d, namespace, name, "scale"),
		contentType: string(types.MergePatchType),
		body:        body,
	}, out)
}

// Patch sends payload verbatim to the object. The patch type selects the
// server's merge semantics and becomes the request Content-Type; empty means
// JSON merge patch.
func (c *Client) Patch(ctx context.Context, cluster string, d Descriptor, namespace, name string, payload any, patchType types.PatchType, out any) error {
	if err := validateObject(cluster, d, namespace, name); err != nil {
		return err
	}
	contentType, err := patchContentType(patchType)
	if err != nil {
		return err
	}
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPatch,
		cluster:     cluster,
		desc:        d,
		path:        BuildPath(cluster, d, namespace, name, ""),
		contentType: contentType,
		body:        body,
	}, out)
}

type request struct {
	method      string
	cluster     string
	desc        Descriptor
	path        string
	query       url.Values
	contentType string
	accept      string
	body        []byte
}

func (c *Client) url(r request) *url.URL {
	u := *c.baseURL
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + r.path
	if p, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = p
	}
	u.RawQuery = ""
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}
	return &u
}

// do sends r and decodes a 2xx body into out. out may be nil, a *[]byte for
// the raw body, or any JSON target.
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.url(r)
	fullURL := target.String()

	var payload io.Reader
	if r.body != nil {
		payload = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, payload)
	if err != nil {
		return &NetworkError{Method: r.method, URL: fullURL, Err: err}
	}
	req.URL = target
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	code := "network"
	defer func() {
		metrics.ObserveProxyRequest(r.cluster, r.method, r.desc.Resource, code, time.Since(start))
	}()

	log := c.log.With("cluster", r.cluster, "method", r.method, "url", fullURL)
	resp, err := c.doer.Do(req)
	if err != nil {
		log.Debugw("proxy request failed", "error", err)
		return &NetworkError{Method: r.method, URL: fullURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: r.method, URL: fullURL, Err: fmt.Errorf("read response body: %w", err)}
	}
	code = strconv.Itoa(resp.StatusCode)
	log.Debugw("proxy request", "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newRemoteError(resp, body)
	}
	switch o := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*o = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		code = "decode"
		return &DecodeError{URL: fullURL, Err: err}
	}
	return nil
}

func validateTarget(cluster string, d Descriptor) error {
	if err := validateSegment("cluster", cluster); err != nil {
		return err
	}
	return d.validate()
}

func validateObject(cluster string, d Descriptor, namespace, name string) error {
	if err := validateTarget(cluster, d); err != nil {
		return err
	}
	if !d.ClusterScoped {
		if err := validateSegment("namespace", namespace); err != nil {
			return err
		}
	}
	return validateSegment("name", name)
}

// validateSegment rejects values that cannot address a single path segment.
func validateSegment(field, value string) error {
	switch value {
	case "":
		return invalidArgument(field, "must not be empty")
	case ".", "..":
		return invalidArgument(field, fmt.Sprintf("%q is not a valid segment", value))
	}
	return nil
}

func patchContentType(pt types.PatchType) (string, error) {
	switch pt {
	case "":
		return string(types.MergePatchType), nil
	case types.MergePatchType, types.StrategicMergePatchType, types.JSONPatchType:
		return string(pt), nil
	default:
		return "", invalidArgument("patchType", fmt.Sprintf("unsupported patch type %q", pt))
	}
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, invalidArgument("payload", "must not be nil")
	case []byte:
		if len(p) == 0 {
			return nil, invalidArgument("payload", "must not be empty")
		}
		return p, nil
	case json.RawMessage:
		if len(p) == 0 {
			return nil, invalidArgument("payload", "must not be empty")
		}
		return p, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, invalidArgument("payload", err.Error())
	}
	return data, nil
}
