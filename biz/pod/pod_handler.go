package pod

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func init() {
	biz.RegisterHandler(func(env *biz.Env) (biz.ToolHandler, error) {
		return NewPodHandler(env)
	})
}

func NewPodHandler(env *biz.Env) (*PodHandler, error) {
	tools := make(map[*protocol.Tool]server.ToolHandlerFunc)
	p := &PodHandler{
		env:   env,
		tools: tools,
	}

	getPodLogsTool, err := protocol.NewTool(
		"get_pod_logs",
		"Get Pod Logs",
		struct {
			Cluster   string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace string `json:"namespace" description:"Namespace of the Pod" required:"true"`
			PodName   string `json:"podName" description:"Name of the Pod" required:"true"`
			Container string `json:"container" description:"Name of the container to get logs from, default is the last container"`
			TailLines int64  `json:"tailLines" description:"Number of lines from the end of the log to show"`
			Previous  bool   `json:"previous" description:"Return logs of the previous terminated container"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	describePodTool, err := protocol.NewTool(
		"describe_pod",
		"Get Detailed Pod Information",
		struct {
			Cluster   string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace string `json:"namespace" description:"Namespace of the Pod, default is 'default'"`
			PodName   string `json:"podName" description:"Name of the Pod" required:"true"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	listPodsTool, err := protocol.NewTool(
		"list_pods",
		"List Pods in a Namespace",
		struct {
			Cluster       string `json:"cluster" description:"Cluster name registered in the console, defaults to the configured cluster"`
			Namespace     string `json:"namespace" description:"Namespace of Pods, default is 'default'"`
			LabelSelector string `json:"labelSelector" description:"Label selector for filtering Pods"`
			AllNamespaces bool   `json:"allNamespaces" description:"List Pods in all namespaces"`
		}{},
	)
	if err != nil {
		return nil, err
	}

	tools[getPodLogsTool] = p.getLogs
	tools[describePodTool] = p.describePod
	tools[listPodsTool] = p.listPods
	return p, nil
}

type PodHandler struct {
	env   *biz.Env
	tools map[*protocol.Tool]server.ToolHandlerFunc
}

func (p *PodHandler) GetTools() (map[*protocol.Tool]server.ToolHandlerFunc, error) {
	return p.tools, nil
}

func (p *PodHandler) target(requested string) (string, *proxy.Client, error) {
	cluster, err := p.env.Cluster(requested)
	if err != nil {
		return "", nil, err
	}
	client, err := p.env.Client()
	if err != nil {
		return "", nil, err
	}
	return cluster, client, nil
}

// Handle get_pod_logs tool
func (p *PodHandler) getLogs(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[podLogsParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := p.target(params.Cluster)
	if err != nil {
		return nil, err
	}

	container := params.Container
	if container == "" {
		pod, err := proxy.NewPodClient(client).Get(ctx, cluster, params.Namespace, params.PodName)
		if err != nil {
			return nil, err
		}
		if len(pod.Spec.Containers) == 0 {
			return nil, errors.New("no containers found in pod")
		}
		container = pod.Spec.Containers[len(pod.Spec.Containers)-1].Name
	}

	query := url.Values{"container": {container}}
	if params.TailLines > 0 {
		query.Set("tailLines", strconv.FormatInt(params.TailLines, 10))
	}
	if params.Previous {
		query.Set("previous", "true")
	}
	logs, err := client.GetSubresource(ctx, cluster, proxy.Pods, params.Namespace, params.PodName, "log", query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(logs)) == "" {
		return biz.TextResult(p.env.T("pod.logs_empty", params.PodName)), nil
	}
	return biz.TextResult(string(logs)), nil
}

// Handle describe_pod tool
func (p *PodHandler) describePod(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[describePodParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := p.target(params.Cluster)
	if err != nil {
		return nil, err
	}
	if params.Namespace == "" {
		params.Namespace = "default"
	}

	pod, err := proxy.NewPodClient(client).Get(ctx, cluster, params.Namespace, params.PodName)
	if err != nil {
		return nil, err
	}
	return biz.TextResult(biz.FormatPodDetail(pod)), nil
}

// Handle list_pods tool
func (p *PodHandler) listPods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	params, err := biz.ParseParams[listPodsParams](req)
	if err != nil {
		return nil, err
	}
	cluster, client, err := p.target(params.Cluster)
	if err != nil {
		return nil, err
	}

	pods := proxy.NewPodClient(client)
	opts := proxy.ListOptions{LabelSelector: params.LabelSelector}
	if params.AllNamespaces {
		list, err := pods.List(ctx, cluster, opts)
		if err != nil {
			return nil, err
		}
		if len(list.Items) == 0 {
			return biz.TextResult(p.env.T("pod.empty_all")), nil
		}
		return biz.TextResult(biz.FormatPodsTable(list.Items)), nil
	}

	namespace := params.Namespace
	if namespace == "" {
		namespace = "default"
	}
	list, err := pods.ListByNamespace(ctx, cluster, namespace, opts)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return biz.TextResult(p.env.T("pod.empty_namespace", namespace)), nil
	}
	return biz.TextResult(biz.FormatPodsTable(list.Items)), nil
}
