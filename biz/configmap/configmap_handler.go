package configmap

import (
	"context"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	corev1 "k8s.io/api/core/v1"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func init() {
	biz.RegisterHandler(func(env *biz.Env) (biz.ToolHandler, error) {
		return NewConfigMapHandler(env)
	})
}

func NewConfigMapHandler(env *biz.Env) (*ConfigMapHandler, error) {
	tools := make(map[*protocol.Tool]server.ToolHandlerFunc)
	c := &ConfigMapHandler{
		env:   env,
		tools: tools,
	}

	getConfigMapTool, err := protocol.NewTool(
		"get_configmap",
		"Get ConfigMap Content",
		struct {
			Cluster       string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace     string `json:"namespace" description:"Namespace of the ConfigMap, default is 'default'"`
			ConfigMapName string `json:"configMapName" description:"Name of the ConfigMap" required:"true"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	listConfigMapsTool, err := protocol.NewTool(
		"list_configmaps",
		"List All ConfigMaps",
		struct {
			Cluster       string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace     string `json:"namespace" description:"Namespace of ConfigMaps, if empty will list from all namespaces"`
			LabelSelector string `json:"labelSelector" description:"Label selector for filtering ConfigMaps"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	tools[getConfigMapTool] = c.getConfigMap
	tools[listConfigMapsTool] = c.listConfigMaps
	return c, nil
}

type ConfigMapHandler struct {
	env   *biz.Env
	tools map[*protocol.Tool]server.ToolHandlerFunc
}

func (c *ConfigMapHandler) GetTools() (map[*protocol.Tool]server.ToolHandlerFunc, error) {
	return c.tools, nil
}

func (c *ConfigMapHandler) configMaps(requested string) (string, *proxy.Resource[corev1.ConfigMap, corev1.ConfigMapList], error) {
	cluster, err := c.env.Cluster(requested)
	if err != nil {
		return "", nil, err
	}
	client, err := c.env.Client()
	if err != nil {
		return "", nil, err
	}
	return cluster, proxy.NewConfigMapClient(client), nil
}

// Handle get_configmap tool
func (c *ConfigMapHandler) getConfigMap(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[ConfigMapParams](req)
	if err != nil {
		return nil, err
	}
	cluster, cms, err := c.configMaps(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = "default"
	}

	cm, err := cms.Get(ctx, cluster, params.Namespace, params.ConfigMapName)
	if err != nil {
		return nil, fmt.Errorf("failed to get ConfigMap %s in namespace %s: %w", params.ConfigMapName, params.Namespace, err)
	}
	return biz.TextResult(biz.FormatConfigMapDetail(cm)), nil
}

// Handle list_configmaps tool
func (c *ConfigMapHandler) listConfigMaps(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[ListConfigMapsParams](req)
	if err != nil {
		return nil, err
	}
	cluster, cms, err := c.configMaps(params.Cluster)
	if err != nil {
		return nil, err
	}

	opts := proxy.ListOptions{LabelSelector: params.LabelSelector}
	if params.Namespace == "" {
		list, err := cms.List(ctx, cluster, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list ConfigMaps across all namespaces: %w", err)
		}
		return biz.TextResult(c.env.T("configmap.all") + "\n\n" + biz.FormatConfigMapsTable(list.Items)), nil
	}

	list, err := cms.ListByNamespace(ctx, cluster, params.Namespace, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ConfigMaps in namespace %s: %w", params.Namespace, err)
	}
	return biz.TextResult(c.env.T("configmap.in_namespace", params.Namespace) + "\n\n" + biz.FormatConfigMapsTable(list.Items)), nil
}
