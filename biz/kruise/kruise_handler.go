package kruise

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	autoscalingv1 "k8s.io/api/autoscaling/v1"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func init() {
	biz.RegisterHandler(func(env *biz.Env) (biz.ToolHandler, error) {
		return NewKruiseHandler(env)
	})
}

const defaultNamespace = "default"

func NewKruiseHandler(env *biz.Env) (*KruiseHandler, error) {
	tools := make(map[*protocol.Tool]server.ToolHandlerFunc)
	k := &KruiseHandler{
		env:   env,
		tools: tools,
	}

	listCloneSetsTool, err := protocol.NewTool(
		"list_clonesets",
		"List CloneSets of a cluster through the console proxy",
		struct {
			Cluster       string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace     string `json:"namespace" description:"Namespace of the resource, default is 'default'"`
			AllNamespaces bool   `json:"allNamespaces" description:"Whether to list resources in all namespaces"`
			LabelSelector string `json:"labelSelector" description:"Label selector for filtering CloneSets"`
			PageNum       int    `json:"pageNum" description:"Page number starting from 1, omit for the full list"`
			PageSize      int    `json:"pageSize" description:"Page size, omit for the full list"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	listAdvancedStatefulSetsTool, err := protocol.NewTool(
		"list_advanced_statefulsets",
		"List Advanced StatefulSets of a cluster through the console proxy",
		struct {
			Cluster       string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace     string `json:"namespace" description:"Namespace of the resource, default is 'default'"`
			AllNamespaces bool   `json:"allNamespaces" description:"Whether to list resources in all namespaces"`
			LabelSelector string `json:"labelSelector" description:"Label selector for filtering StatefulSets"`
			PageNum       int    `json:"pageNum" description:"Page number starting from 1, omit for the full list"`
			PageSize      int    `json:"pageSize" description:"Page size, omit for the full list"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	describeCloneSetTool, err := protocol.NewTool(
		"describe_cloneset",
		"Describe CloneSet",
		struct {
			Cluster   string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace string `json:"namespace" description:"Namespace of the resource, default is 'default'"`
			Name      string `json:"name" description:"Name of the resource" required:"true"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	describeAdvancedStatefulSetTool, err := protocol.NewTool(
		"describe_advanced_statefulset",
		"Describe Advanced StatefulSet",
		struct {
			Cluster   string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace string `json:"namespace" description:"Namespace of the resource, default is 'default'"`
			Name      string `json:"name" description:"Name of the resource" required:"true"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	patchCloneSetTool, err := protocol.NewTool(
		"patch_cloneset",
		"Patch a CloneSet with a merge, strategic merge or JSON patch",
		struct {
			Cluster   string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace string `json:"namespace" description:"Namespace of the resource, default is 'default'"`
			Name      string `json:"name" description:"Name of the CloneSet" required:"true"`
			Patch     string `json:"patch" description:"Patch document as JSON" required:"true"`
			PatchType string `json:"patchType" description:"One of 'merge', 'strategic' or 'json', default is 'merge'"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	scaleSchema := struct {
		Cluster      string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
		ResourceType string `json:"resourceType" description:"Resource type, e.g. 'advancedstatefulset' or 'cloneset'" required:"true"`
		Namespace    string `json:"namespace" description:"Namespace of the resource, default is 'default'"`
		ResourceName string `json:"resourceName" description:"Name of the resource to scale" required:"true"`
		Replicas     string `json:"replicas" description:"Number of replicas to scale to" required:"true"`
	}{}
	scaleResourceTool, err := protocol.NewTool("scale_kruise_resource", "Scale OpenKruise Resource Replicas", scaleSchema)
	if err != nil {
		return nil, err
	}
	scaleTool, err := protocol.NewTool("scale", "Scale OpenKruise Resource Replicas", scaleSchema)
	if err != nil {
		return nil, err
	}

	tools[listCloneSetsTool] = k.listCloneSets
	tools[listAdvancedStatefulSetsTool] = k.listAdvancedStatefulSets
	tools[describeCloneSetTool] = k.describeCloneSet
	tools[describeAdvancedStatefulSetTool] = k.describeAdvancedStatefulSet
	tools[patchCloneSetTool] = k.patchCloneSet
	tools[scaleResourceTool] = k.scale
	tools[scaleTool] = k.scale

	return k, nil
}

type KruiseHandler struct {
	env   *biz.Env
	tools map[*protocol.Tool]server.ToolHandlerFunc
}

func (k *KruiseHandler) GetTools() (map[*protocol.Tool]server.ToolHandlerFunc, error) {
	return k.tools, nil
}

// target resolves the cluster and proxy client shared by every tool call.
func (k *KruiseHandler) target(requested string) (string, *proxy.Client, error) {
	cluster, err := k.env.Cluster(requested)
	if err != nil {
		return "", nil, err
	}
	client, err := k.env.Client()
	if err != nil {
		return "", nil, err
	}
	return cluster, client, nil
}

func (k *KruiseHandler) listOptions(params KruiseListParams) proxy.ListOptions {
	return proxy.ListOptions{
		Page:          k.env.Page(params.PageNum, params.PageSize),
		LabelSelector: params.LabelSelector,
	}
}

func (k *KruiseHandler) emptyMessage(kind, namespace string, all bool) string {
	if all {
		return k.env.T("kruise.list.empty_all", kind)
	}
	return k.env.T("kruise.list.empty_namespace", kind, namespace)
}

func (k *KruiseHandler) pageHeader(opts proxy.ListOptions) string {
	if opts.Page == nil {
		return ""
	}
	return k.env.T("kruise.list.page", opts.Page.PageNum, opts.Page.PageSize) + "\n\n"
}

// Handle list_clonesets tool
func (k *KruiseHandler) listCloneSets(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KruiseListParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := k.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = defaultNamespace
	}

	res := proxy.NewCloneSetClient(client)
	opts := k.listOptions(params)
	if params.AllNamespaces {
		list, err := res.List(ctx, cluster, opts)
		if err != nil {
			return nil, err
		}
		if len(list.Items) == 0 {
			return biz.TextResult(k.emptyMessage("CloneSets", "", true)), nil
		}
		return biz.TextResult(k.pageHeader(opts) + biz.FormatCloneSetsTable(list.Items)), nil
	}

	list, err := res.ListByNamespace(ctx, cluster, params.Namespace, opts)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return biz.TextResult(k.emptyMessage("CloneSets", params.Namespace, false)), nil
	}
	return biz.TextResult(k.pageHeader(opts) + biz.FormatCloneSetsTable(list.Items)), nil
}

// Handle list_advanced_statefulsets tool
func (k *KruiseHandler) listAdvancedStatefulSets(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KruiseListParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := k.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = defaultNamespace
	}

	res := proxy.NewAdvancedStatefulSetClient(client)
	opts := k.listOptions(params)
	if params.AllNamespaces {
		list, err := res.List(ctx, cluster, opts)
		if err != nil {
			return nil, err
		}
		if len(list.Items) == 0 {
			return biz.TextResult(k.emptyMessage("AdvancedStatefulSets", "", true)), nil
		}
		return biz.TextResult(k.pageHeader(opts) + biz.FormatAdvancedStatefulSetsTable(list.Items)), nil
	}

	list, err := res.ListByNamespace(ctx, cluster, params.Namespace, opts)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return biz.TextResult(k.emptyMessage("AdvancedStatefulSets", params.Namespace, false)), nil
	}
	return biz.TextResult(k.pageHeader(opts) + biz.FormatAdvancedStatefulSetsTable(list.Items)), nil
}

// Handle describe_cloneset tool
func (k *KruiseHandler) describeCloneSet(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KruiseDescribeParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := k.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = defaultNamespace
	}

	cs, err := proxy.NewCloneSetClient(client).Get(ctx, cluster, params.Namespace, params.Name)
	if err != nil {
		return nil, err
	}
	return biz.TextResult(biz.FormatCloneSetDetail(cs)), nil
}

// Handle describe_advanced_statefulset tool
func (k *KruiseHandler) describeAdvancedStatefulSet(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KruiseDescribeParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := k.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = defaultNamespace
	}

	sts, err := proxy.NewAdvancedStatefulSetClient(client).Get(ctx, cluster, params.Namespace, params.Name)
	if err != nil {
		return nil, err
	}
	return biz.TextResult(biz.FormatAdvancedStatefulSetDetail(sts)), nil
}

// Handle patch_cloneset tool
func (k *KruiseHandler) patchCloneSet(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KruisePatchParams](req)
	if err != nil {
		return nil, err
	}
	patchType, err := proxy.ParsePatchType(params.PatchType)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(params.Patch)) {
		return nil, fmt.Errorf("patch is not valid JSON: %s", params.Patch)
	}
	cluster, client, err := k.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = defaultNamespace
	}

	cs, err := proxy.NewCloneSetClient(client).Patch(ctx, cluster, params.Namespace, params.Name, []byte(params.Patch), patchType)
	if err != nil {
		return nil, err
	}
	k.env.Logger().Infow("patched cloneset", "cluster", cluster, "namespace", params.Namespace, "name", params.Name, "patchType", patchType)
	return biz.TextResult(k.env.T("kruise.patch.success", "CloneSet", params.Name, params.Namespace) + "\n\n" + biz.FormatCloneSetDetail(cs)), nil
}

// Handle scale and scale_kruise_resource tools
func (k *KruiseHandler) scale(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[KruiseScaleParams](req)
	if err != nil {
		return nil, err
	}

	replicas, err := proxy.ParseReplicas(params.Replicas)
	if err != nil {
		return nil, err
	}
	desc, kind, err := scalableKind(params.ResourceType)
	if err != nil {
		return nil, err
	}
	cluster, client, err := k.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = defaultNamespace
	}

	patch, err := proxy.ReplicasPatch(replicas)
	if err != nil {
		return nil, err
	}
	var scale autoscalingv1.Scale
	if err := client.Scale(ctx, cluster, desc, params.Namespace, params.ResourceName, patch, &scale); err != nil {
		return nil, err
	}
	k.env.Logger().Infow("scaled workload", "cluster", cluster, "resource", desc.Resource, "namespace", params.Namespace, "name", params.ResourceName, "replicas", replicas)

	out := k.env.T("kruise.scale.success", kind, params.ResourceName, params.Namespace, replicas)
	if scale.Name != "" {
		out += "\n\n" + biz.FormatScale(&scale)
	}
	return biz.TextResult(out), nil
}

func scalableKind(resourceType string) (proxy.Descriptor, string, error) {
	desc, ok := proxy.Lookup(resourceType)
	switch {
	case ok && desc == proxy.CloneSets:
		return desc, "CloneSet", nil
	case ok && desc == proxy.AdvancedStatefulSets:
		return desc, "AdvancedStatefulSet", nil
	default:
		return proxy.Descriptor{}, "", fmt.Errorf("unsupported resource type: %s", resourceType)
	}
}
