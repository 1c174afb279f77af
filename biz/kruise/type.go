package kruise

// KruiseListParams defines list parameters shared by the workload kinds
type KruiseListParams struct {
	Cluster       string `json:"cluster"`
	Namespace     string `json:"namespace"`
	AllNamespaces bool   `json:"allNamespaces"`
	LabelSelector string `json:"labelSelector"`
	PageNum       int    `json:"pageNum"`
	PageSize      int    `json:"pageSize"`
}

// KruiseScaleParams defines resource scaling parameters
type KruiseScaleParams struct {
	Cluster      string `json:"cluster"`
	ResourceType string `json:"resourceType"`
	Namespace    string `json:"namespace"`
	ResourceName string `json:"resourceName"`
	Replicas     string `json:"replicas"`
}

// KruiseDescribeParams defines parameters for resource description
type KruiseDescribeParams struct {
	Cluster   string `json:"cluster"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// KruisePatchParams defines parameters for patching a CloneSet
type KruisePatchParams struct {
	Cluster   string `json:"cluster"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Patch     string `json:"patch"`
	PatchType string `json:"patchType"`
}
