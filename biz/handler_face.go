package biz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"go.uber.org/zap"

	"github.com/beastpu/kruise-proxy-mcp/biz/clientset"
	"github.com/beastpu/kruise-proxy-mcp/biz/i18n"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

type ToolHandler interface {
	GetTools() (map[*protocol.Tool]server.ToolHandlerFunc, error)
}

// Env carries the dependencies shared by every tool handler.
type Env struct {
	Provider *clientset.Provider
	Log      *zap.SugaredLogger
	Messages *i18n.Translator
	// DefaultCluster is used when a tool call names no cluster.
	DefaultCluster string
	// PageSize applies when a list call sets pageNum without pageSize.
	PageSize int
}

var ErrNoCluster = errors.New("cluster is required: pass the cluster parameter or set default-cluster")

// Cluster returns requested, or the default cluster when requested is blank.
func (e *Env) Cluster(requested string) (string, error) {
	if c := strings.TrimSpace(requested); c != "" {
		return c, nil
	}
	if e.DefaultCluster != "" {
		return e.DefaultCluster, nil
	}
	return "", ErrNoCluster
}

// Client returns the proxy client for the current endpoint.
func (e *Env) Client() (*proxy.Client, error) {
	if e.Provider == nil {
		return nil, errors.New("no endpoint provider configured")
	}
	return e.Provider.Client()
}

// Logger returns the configured logger, or a no-op one.
func (e *Env) Logger() *zap.SugaredLogger {
	if e.Log == nil {
		return zap.NewNop().Sugar()
	}
	return e.Log
}

// T translates key with the configured locale.
func (e *Env) T(key string, args ...any) string {
	if e.Messages == nil {
		return key
	}
	return e.Messages.T(key, args...)
}

// Page turns the pageNum/pageSize tool arguments into a page request.
// Both zero means no pagination; a lone pageNum uses the configured size
// and a lone pageSize starts at the first page.
func (e *Env) Page(pageNum, pageSize int) *proxy.PageRequest {
	if pageNum == 0 && pageSize == 0 {
		return nil
	}
	if pageNum == 0 {
		pageNum = 1
	}
	if pageSize == 0 {
		pageSize = e.PageSize
		if pageSize <= 0 {
			pageSize = 10
		}
	}
	return &proxy.PageRequest{PageNum: pageNum, PageSize: pageSize}
}

// ParseParams is a generic function used to parse raw request parameters into a specified parameter type
func ParseParams[T any](req *protocol.CallToolRequest) (T, error) {
	var params T
	if len(req.RawArguments) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(req.RawArguments, &params); err != nil {
		return params, fmt.Errorf("failed to parse parameters: %w", err)
	}
	return params, nil
}

func TextResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
