package node

import (
	"context"
	"errors"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"github.com/tidwall/sjson"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func init() {
	biz.RegisterHandler(func(env *biz.Env) (biz.ToolHandler, error) {
		return NewNodeHandler(env)
	})
}

func NewNodeHandler(env *biz.Env) (*NodeHandler, error) {
	tools := make(map[*protocol.Tool]server.ToolHandlerFunc)
	n := &NodeHandler{
		env:   env,
		tools: tools,
	}

	nodeSchema := struct {
		Cluster  string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
		NodeName string `json:"nodeName" description:"Name of the node" required:"true"`
	}{}

	cordonNodeTool, err := protocol.NewTool("cordon_node", "Mark Kubernetes Node as Unschedulable", nodeSchema)
	if err != nil {
		return nil, err
	}
	uncordonNodeTool, err := protocol.NewTool("uncordon_node", "Mark Kubernetes Node as Schedulable", nodeSchema)
	if err != nil {
		return nil, err
	}
	describeNodeTool, err := protocol.NewTool("describe_node", "Get Detailed Information of a Kubernetes Node", nodeSchema)
	if err != nil {
		return nil, err
	}

	listNodesTool, err := protocol.NewTool(
		"list_nodes",
		"List All Kubernetes Nodes",
		struct {
			Cluster       string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			LabelSelector string `json:"labelSelector" description:"Label selector for filtering nodes"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	tools[cordonNodeTool] = n.cordonNode
	tools[uncordonNodeTool] = n.uncordonNode
	tools[describeNodeTool] = n.describe
	tools[listNodesTool] = n.list

	return n, nil
}

type NodeHandler struct {
	env   *biz.Env
	tools map[*protocol.Tool]server.ToolHandlerFunc
}

func (n *NodeHandler) GetTools() (map[*protocol.Tool]server.ToolHandlerFunc, error) {
	return n.tools, nil
}

func (n *NodeHandler) nodes(requested string) (string, *proxy.Resource[corev1.Node, corev1.NodeList], error) {
	cluster, err := n.env.Cluster(requested)
	if err != nil {
		return "", nil, err
	}
	client, err := n.env.Client()
	if err != nil {
		return "", nil, err
	}
	return cluster, proxy.NewNodeClient(client), nil
}

// Handle cordon_node tool
func (n *NodeHandler) cordonNode(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[NodeParams](req)
	if err != nil {
		return nil, err
	}
	if err := n.setUnschedulable(ctx, params, true); err != nil {
		return nil, err
	}
	return biz.TextResult(n.env.T("node.cordon", params.NodeName)), nil
}

// Handle uncordon_node tool
func (n *NodeHandler) uncordonNode(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[NodeParams](req)
	if err != nil {
		return nil, err
	}
	if err := n.setUnschedulable(ctx, params, false); err != nil {
		return nil, err
	}
	return biz.TextResult(n.env.T("node.uncordon", params.NodeName)), nil
}

// Handle describe_node tool
func (n *NodeHandler) describe(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[NodeParams](req)
	if err != nil {
		return nil, err
	}
	cluster, nodes, err := n.nodes(params.Cluster)
	if err != nil {
		return nil, err
	}

	node, err := nodes.Get(ctx, cluster, "", params.NodeName)
	if err != nil {
		return nil, err
	}
	return biz.TextResult(biz.FormatNodeDetail(node)), nil
}

// Handle list_nodes tool
func (n *NodeHandler) list(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[NodeListParams](req)
	if err != nil {
		return nil, err
	}
	cluster, nodes, err := n.nodes(params.Cluster)
	if err != nil {
		return nil, err
	}

	list, err := nodes.List(ctx, cluster, proxy.ListOptions{LabelSelector: params.LabelSelector})
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return biz.TextResult(n.env.T("node.empty")), nil
	}
	return biz.TextResult(biz.FormatNodesTable(list.Items)), nil
}

// setUnschedulable patches spec.unschedulable after checking the node is not
// already in the requested state.
func (n *NodeHandler) setUnschedulable(ctx context.Context, params NodeParams, unschedulable bool) error {
	cluster, nodes, err := n.nodes(params.Cluster)
	if err != nil {
		return err
	}

	node, err := nodes.Get(ctx, cluster, "", params.NodeName)
	if err != nil {
		return err
	}
	if node.Spec.Unschedulable == unschedulable {
		key := "node.already_uncordoned"
		if unschedulable {
			key = "node.already_cordoned"
		}
		return errors.New(n.env.T(key, params.NodeName))
	}

	patch, err := sjson.SetBytes([]byte(`{}`), "spec.unschedulable", unschedulable)
	if err != nil {
		return err
	}
	if _, err := nodes.Patch(ctx, cluster, "", params.NodeName, patch, types.MergePatchType); err != nil {
		return err
	}
	n.env.Logger().Infow("updated node schedulability", "cluster", cluster, "name", params.NodeName, "unschedulable", unschedulable)
	return nil
}
