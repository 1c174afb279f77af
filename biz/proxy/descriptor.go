package proxy

import (
	"sort"
	"strings"
)

// Descriptor identifies a resource collection behind the proxy.
type Descriptor struct {
	Group    string
	Version  string
	Resource string
	// NamespacedResource replaces Resource in namespaced paths when set.
	NamespacedResource string
	ClusterScoped      bool
}

var (
	// CloneSets is routed by the console as .../namespaces/{ns}/cloneset.
	CloneSets = Descriptor{
		Group:              "apps.kruise.io",
		Version:            "v1alpha1",
		Resource:           "clonesets",
		NamespacedResource: "cloneset",
	}
	AdvancedStatefulSets = Descriptor{
		Group:    "apps.kruise.io",
		Version:  "v1beta1",
		Resource: "statefulsets",
	}
	Pods = Descriptor{
		Version:  "v1",
		Resource: "pods",
	}
	ConfigMaps = Descriptor{
		Version:  "v1",
		Resource: "configmaps",
	}
	Nodes = Descriptor{
		Version:       "v1",
		Resource:      "nodes",
		ClusterScoped: true,
	}
)

var kinds = map[string]Descriptor{
	"cloneset":             CloneSets,
	"clonesets":            CloneSets,
	"cs":                   CloneSets,
	"advancedstatefulset":  AdvancedStatefulSets,
	"advancedstatefulsets": AdvancedStatefulSets,
	"asts":                 AdvancedStatefulSets,
	"pod":                  Pods,
	"pods":                 Pods,
	"po":                   Pods,
	"configmap":            ConfigMaps,
	"configmaps":           ConfigMaps,
	"cm":                   ConfigMaps,
	"node":                 Nodes,
	"nodes":                Nodes,
	"no":                   Nodes,
}

// Lookup resolves a kind name or alias to its descriptor.
func Lookup(kind string) (Descriptor, bool) {
	d, ok := kinds[strings.ToLower(strings.TrimSpace(kind))]
	return d, ok
}

// Kinds returns the registered kind names and aliases in sorted order.
func Kinds() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupVersion returns "group/version", or just the version for the core group.
func (d Descriptor) GroupVersion() string {
	if d.Group == "" {
		return d.Version
	}
	return d.Group + "/" + d.Version
}

func (d Descriptor) String() string {
	return d.Resource + "." + d.GroupVersion()
}

func (d Descriptor) namespacedResource() string {
	if d.NamespacedResource != "" {
		return d.NamespacedResource
	}
	return d.Resource
}

func (d Descriptor) validate() error {
	if d.Version == "" {
		return invalidArgument("resource", "version is required")
	}
	if d.Resource == "" {
		return invalidArgument("resource", "resource name is required")
	}
	if strings.Contains(d.Group, "/") || strings.Contains(d.Version, "/") ||
		strings.Contains(d.Resource, "/") || strings.Contains(d.NamespacedResource, "/") {
		return invalidArgument("resource", "descriptor segments must not contain '/'")
	}
	return nil
}
