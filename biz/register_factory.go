package biz

import (
	"context"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"go.uber.org/zap"

	"github.com/beastpu/kruise-proxy-mcp/biz/metrics"
)

// HandlerFactory builds a handler once the shared Env is known.
type HandlerFactory func(env *Env) (ToolHandler, error)

// Handler factories added by the init functions of the tool packages
var handlerFactories []HandlerFactory

// RegisterHandler adds a handler factory. Tool packages call it from init.
func RegisterHandler(factory HandlerFactory) {
	handlerFactories = append(handlerFactories, factory)
}

// BuildTools runs every registered factory against env and collects the
// instrumented tool handlers.
func BuildTools(env *Env) (map[*protocol.Tool]server.ToolHandlerFunc, error) {
	all := make(map[*protocol.Tool]server.ToolHandlerFunc)
	for _, factory := range handlerFactories {
		handler, err := factory(env)
		if err != nil {
			return nil, err
		}
		tools, err := handler.GetTools()
		if err != nil {
			return nil, err
		}
		for tool, fn := range tools {
			all[tool] = instrument(env.Logger(), tool.Name, fn)
		}
	}
	return all, nil
}

// RegisterTools registers every tool on mcpServer.
func RegisterTools(mcpServer *server.Server, env *Env) error {
	tools, err := BuildTools(env)
	if err != nil {
		return err
	}
	for tool, fn := range tools {
		mcpServer.RegisterTool(tool, fn)
	}
	return nil
}

func instrument(log *zap.SugaredLogger, name string, fn server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
		start := time.Now()
		result, err := fn(ctx, req)
		metrics.ObserveToolCall(name, err)
		if err != nil {
			log.Warnw("tool call failed", "tool", name, "duration", time.Since(start), "error", err)
		} else {
			log.Debugw("tool call", "tool", name, "duration", time.Since(start))
		}
		return result, err
	}
}
