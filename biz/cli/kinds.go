package cli

import (
	"context"
	"fmt"

	appsv1alpha1 "github.com/openkruise/kruise-api/apps/v1alpha1"
	appsv1beta1 "github.com/openkruise/kruise-api/apps/v1beta1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

// kindOps hides the typed facade of one resource kind behind untyped results
// so commands can dispatch on the kind argument.
type kindOps interface {
	Label() string
	Scalable() bool
	List(ctx context.Context, c *proxy.Client, cluster, namespace string, opts proxy.ListOptions) (obj any, table string, err error)
	Get(ctx context.Context, c *proxy.Client, cluster, namespace, name string) (obj any, detail string, err error)
	Patch(ctx context.Context, c *proxy.Client, cluster, namespace, name string, patch []byte, pt types.PatchType) (any, error)
}

type typedKind[T any, L any] struct {
	label    string
	scalable bool
	resource func(*proxy.Client) *proxy.Resource[T, L]
	table    func(*L) string
	describe func(*T) string
}

func (k typedKind[T, L]) Label() string  { return k.label }
func (k typedKind[T, L]) Scalable() bool { return k.scalable }

// List lists across namespaces when namespace is empty.
func (k typedKind[T, L]) List(ctx context.Context, c *proxy.Client, cluster, namespace string, opts proxy.ListOptions) (any, string, error) {
	res := k.resource(c)
	var (
		list *L
		err  error
	)
	if namespace == "" || res.Descriptor().ClusterScoped {
		list, err = res.List(ctx, cluster, opts)
	} else {
		list, err = res.ListByNamespace(ctx, cluster, namespace, opts)
	}
	if err != nil {
		return nil, "", err
	}
	return list, k.table(list), nil
}

func (k typedKind[T, L]) Get(ctx context.Context, c *proxy.Client, cluster, namespace, name string) (any, string, error) {
	obj, err := k.resource(c).Get(ctx, cluster, namespace, name)
	if err != nil {
		return nil, "", err
	}
	return obj, k.describe(obj), nil
}

func (k typedKind[T, L]) Patch(ctx context.Context, c *proxy.Client, cluster, namespace, name string, patch []byte, pt types.PatchType) (any, error) {
	return k.resource(c).Patch(ctx, cluster, namespace, name, patch, pt)
}

var kindRegistry = map[proxy.Descriptor]kindOps{
	proxy.CloneSets: typedKind[appsv1alpha1.CloneSet, appsv1alpha1.CloneSetList]{
		label:    "CloneSet",
		scalable: true,
		resource: proxy.NewCloneSetClient,
		table:    func(l *appsv1alpha1.CloneSetList) string { return biz.FormatCloneSetsTable(l.Items) },
		describe: biz.FormatCloneSetDetail,
	},
	proxy.AdvancedStatefulSets: typedKind[appsv1beta1.StatefulSet, appsv1beta1.StatefulSetList]{
		label:    "AdvancedStatefulSet",
		scalable: true,
		resource: proxy.NewAdvancedStatefulSetClient,
		table:    func(l *appsv1beta1.StatefulSetList) string { return biz.FormatAdvancedStatefulSetsTable(l.Items) },
		describe: biz.FormatAdvancedStatefulSetDetail,
	},
	proxy.Pods: typedKind[corev1.Pod, corev1.PodList]{
		label:    "Pod",
		resource: proxy.NewPodClient,
		table:    func(l *corev1.PodList) string { return biz.FormatPodsTable(l.Items) },
		describe: biz.FormatPodDetail,
	},
	proxy.ConfigMaps: typedKind[corev1.ConfigMap, corev1.ConfigMapList]{
		label:    "ConfigMap",
		resource: proxy.NewConfigMapClient,
		table:    func(l *corev1.ConfigMapList) string { return biz.FormatConfigMapsTable(l.Items) },
		describe: biz.FormatConfigMapDetail,
	},
	proxy.Nodes: typedKind[corev1.Node, corev1.NodeList]{
		label:    "Node",
		resource: proxy.NewNodeClient,
		table:    func(l *corev1.NodeList) string { return biz.FormatNodesTable(l.Items) },
		describe: biz.FormatNodeDetail,
	},
}

func lookupKind(name string) (proxy.Descriptor, kindOps, error) {
	desc, ok := proxy.Lookup(name)
	if !ok {
		return proxy.Descriptor{}, nil, fmt.Errorf("unknown kind %q, run 'kruisectl kinds' for the supported kinds", name)
	}
	ops, ok := kindRegistry[desc]
	if !ok {
		return proxy.Descriptor{}, nil, fmt.Errorf("kind %q is not supported by kruisectl", name)
	}
	return desc, ops, nil
}
