package context

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/clientset"
)

func init() {
	biz.RegisterHandler(func(env *biz.Env) (biz.ToolHandler, error) {
		return NewContextHandler(env)
	})
}

func NewContextHandler(env *biz.Env) (*ContextHandler, error) {
	tools := make(map[*protocol.Tool]server.ToolHandlerFunc)
	c := &ContextHandler{
		env:   env,
		tools: tools,
	}

	setKubeconfigPathTool, err := protocol.NewTool(
		"set_kubeconfig_path",
		"Set Custom Kubeconfig File Path used to reach the console",
		struct {
			KubeconfigPath string `json:"kubeconfigPath" description:"Path to the kubeconfig file" required:"true"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	getCurrentContextTool, err := protocol.NewTool("get_current_context", "Get Current Kubernetes Context", struct{}{})
	if err != nil {
		return nil, err
	}

	listContextsTool, err := protocol.NewTool("list_contexts", "List All Available Kubernetes Contexts", struct{}{})
	if err != nil {
		return nil, err
	}

	switchContextTool, err := protocol.NewTool(
		"switch_context",
		"Switch to Specified Kubernetes Context",
		struct {
			ContextName string `json:"contextName" description:"Name of the context to switch to" required:"true"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	tools[setKubeconfigPathTool] = c.setKubeconfigPath
	tools[getCurrentContextTool] = c.getCurrentContext
	tools[listContextsTool] = c.listContexts
	tools[switchContextTool] = c.switchContext

	return c, nil
}

type ContextHandler struct {
	env   *biz.Env
	tools map[*protocol.Tool]server.ToolHandlerFunc
}

func (c *ContextHandler) GetTools() (map[*protocol.Tool]server.ToolHandlerFunc, error) {
	return c.tools, nil
}

func (c *ContextHandler) provider() (*clientset.Provider, error) {
	if c.env.Provider == nil {
		return nil, errors.New("no endpoint provider configured")
	}
	return c.env.Provider, nil
}

// Handle set_kubeconfig_path tool
func (c *ContextHandler) setKubeconfigPath(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KubeconfigPathParams](req)
	if err != nil {
		return nil, err
	}
	p, err := c.provider()
	if err != nil {
		return nil, err
	}

	current, err := p.SetKubeconfigPath(params.KubeconfigPath)
	if err != nil {
		return nil, err
	}
	c.env.Logger().Infow("kubeconfig path changed", "path", params.KubeconfigPath, "context", current)
	return biz.TextResult(c.env.T("context.kubeconfig_set", params.KubeconfigPath, current)), nil
}

// Handle get_current_context tool
func (c *ContextHandler) getCurrentContext(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	p, err := c.provider()
	if err != nil {
		return nil, err
	}
	current, err := p.CurrentContext()
	if err != nil {
		return nil, err
	}
	return biz.TextResult(c.env.T("context.current", current)), nil
}

// Handle list_contexts tool
func (c *ContextHandler) listContexts(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	p, err := c.provider()
	if err != nil {
		return nil, err
	}
	infos, err := p.Contexts()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(c.env.T("context.list_title") + "\n")
	sb.WriteString("----------------------------\n")
	if len(infos) == 0 {
		sb.WriteString(c.env.T("context.none") + "\n")
	}
	for _, info := range infos {
		marker := " "
		if info.Current {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %s\n", marker, info.Name)
		fmt.Fprintf(&sb, "    Cluster: %s\n", info.Cluster)
		fmt.Fprintf(&sb, "    Server: %s\n", info.Server)
		fmt.Fprintf(&sb, "    User: %s\n", info.User)
		fmt.Fprintf(&sb, "    Namespace: %s\n\n", info.Namespace)
	}

	if path := p.KubeconfigPath(); path != "" {
		sb.WriteString(c.env.T("context.using_custom", path) + "\n")
	} else {
		sb.WriteString(c.env.T("context.using_default") + "\n")
	}
	return biz.TextResult(sb.String()), nil
}

// Handle switch_context tool
func (c *ContextHandler) switchContext(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[ContextNameParams](req)
	if err != nil {
		return nil, err
	}
	p, err := c.provider()
	if err != nil {
		return nil, err
	}

	changed, err := p.SwitchContext(params.ContextName)
	if err != nil {
		return nil, err
	}
	if !changed {
		return biz.TextResult(c.env.T("context.already", params.ContextName)), nil
	}
	c.env.Logger().Infow("switched context", "context", params.ContextName)
	return biz.TextResult(c.env.T("context.switched", params.ContextName)), nil
}
