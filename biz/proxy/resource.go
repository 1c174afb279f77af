package proxy

import (
	"context"

	appsv1alpha1 "github.com/openkruise/kruise-api/apps/v1alpha1"
	appsv1beta1 "github.com/openkruise/kruise-api/apps/v1beta1"
	"github.com/tidwall/sjson"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
)

// Resource binds a Client to one descriptor and decodes responses into T
// (object) and L (list).
type Resource[T any, L any] struct {
	client *Client
	desc   Descriptor
}

func NewResource[T any, L any](c *Client, d Descriptor) *Resource[T, L] {
	return &Resource[T, L]{client: c, desc: d}
}

func NewCloneSetClient(c *Client) *Resource[appsv1alpha1.CloneSet, appsv1alpha1.CloneSetList] {
	return NewResource[appsv1alpha1.CloneSet, appsv1alpha1.CloneSetList](c, CloneSets)
}

func NewAdvancedStatefulSetClient(c *Client) *Resource[appsv1beta1.StatefulSet, appsv1beta1.StatefulSetList] {
	return NewResource[appsv1beta1.StatefulSet, appsv1beta1.StatefulSetList](c, AdvancedStatefulSets)
}

func NewPodClient(c *Client) *Resource[corev1.Pod, corev1.PodList] {
	return NewResource[corev1.Pod, corev1.PodList](c, Pods)
}

func NewNodeClient(c *Client) *Resource[corev1.Node, corev1.NodeList] {
	return NewResource[corev1.Node, corev1.NodeList](c, Nodes)
}

func NewConfigMapClient(c *Client) *Resource[corev1.ConfigMap, corev1.ConfigMapList] {
	return NewResource[corev1.ConfigMap, corev1.ConfigMapList](c, ConfigMaps)
}

func (r *Resource[T, L]) Descriptor() Descriptor {
	return r.desc
}

func (r *Resource[T, L]) List(ctx context.Context, cluster string, opts ListOptions) (*L, error) {
	var list L
	if err := r.client.List(ctx, cluster, r.desc, opts, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *Resource[T, L]) ListByNamespace(ctx context.Context, cluster, namespace string, opts ListOptions) (*L, error) {
	var list L
	if err := r.client.ListByNamespace(ctx, cluster, r.desc, namespace, opts, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *Resource[T, L]) Get(ctx context.Context, cluster, namespace, name string) (*T, error) {
	var obj T
	if err := r.client.Get(ctx, cluster, r.desc, namespace, name, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (r *Resource[T, L]) Scale(ctx context.Context, cluster, namespace, name string, payload any) (*autoscalingv1.Scale, error) {
	var scale autoscalingv1.Scale
	if err := r.client.Scale(ctx, cluster, r.desc, namespace, name, payload, &scale); err != nil {
		return nil, err
	}
	return &scale, nil
}

func (r *Resource[T, L]) Patch(ctx context.Context, cluster, namespace, name string, payload any, patchType types.PatchType) (*T, error) {
	var obj T
	if err := r.client.Patch(ctx, cluster, r.desc, namespace, name, payload, patchType, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// ReplicasPatch returns the merge patch {"spec":{"replicas":n}} for a scale subresource.
func ReplicasPatch(replicas int32) ([]byte, error) {
	return sjson.SetBytes([]byte(`{}`), "spec.replicas", replicas)
}
