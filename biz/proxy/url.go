package proxy

import (
	"net/url"
	"strconv"
	"strings"
)

const proxyPrefix = "/api/v1/proxy/"

// BuildPath returns the escaped proxy path for a resource collection, object or
// object subresource. Cluster, namespace, name and subresource are escaped as
// single segments; an empty namespace targets the cluster-wide collection and
// is ignored for cluster-scoped descriptors.
func BuildPath(cluster string, d Descriptor, namespace, name, subresource string) string {
	var b strings.Builder
	b.WriteString(proxyPrefix)
	b.WriteString(url.PathEscape(cluster))
	b.WriteString("/k8s/")
	if d.Group == "" {
		b.WriteString("api/")
	} else {
		b.WriteString("apis/")
		b.WriteString(d.Group)
		b.WriteString("/")
	}
	b.WriteString(d.Version)

	resource := d.Resource
	if namespace != "" && !d.ClusterScoped {
		b.WriteString("/namespaces/")
		b.WriteString(url.PathEscape(namespace))
		resource = d.namespacedResource()
	}
	b.WriteString("/")
	b.WriteString(resource)

	if name != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(name))
		if subresource != "" {
			b.WriteString("/")
			b.WriteString(url.PathEscape(subresource))
		}
	}
	return b.String()
}

// PageRequest selects one page of a console-paginated list. The zero value
// means no pagination.
type PageRequest struct {
	PageNum  int
	PageSize int
}

func (p *PageRequest) empty() bool {
	return p == nil || (p.PageNum == 0 && p.PageSize == 0)
}

func (p *PageRequest) validate() error {
	if p.empty() {
		return nil
	}
	if p.PageNum < 0 || p.PageSize < 0 {
		return invalidArgument("page", "pageNum and pageSize must be positive")
	}
	if p.PageNum == 0 || p.PageSize == 0 {
		return invalidArgument("page", "pageNum and pageSize must be given together")
	}
	return nil
}

// ListOptions controls list requests.
type ListOptions struct {
	Page          *PageRequest
	LabelSelector string
}

func (o ListOptions) validate() error {
	return o.Page.validate()
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if !o.Page.empty() {
		q.Set("pageNum", strconv.Itoa(o.Page.PageNum))
		q.Set("pageSize", strconv.Itoa(o.Page.PageSize))
	}
	if o.LabelSelector != "" {
		q.Set("labelSelector", o.LabelSelector)
	}
	return q
}
