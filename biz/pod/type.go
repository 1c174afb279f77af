package pod

type podLogsParams struct {
	Cluster   string `json:"cluster"`
	Namespace string `json:"namespace"`
	PodName   string `json:"podName"`
	Container string `json:"container"`
	TailLines int64  `json:"tailLines"`
	Previous  bool   `json:"previous"`
}

type describePodParams struct {
	Cluster   string `json:"cluster"`
	Namespace string `json:"namespace"`
	PodName   string `json:"podName"`
}

type listPodsParams struct {
	Cluster       string `json:"cluster"`
	Namespace     string `json:"namespace"`
	LabelSelector string `json:"labelSelector"`
	AllNamespaces bool   `json:"allNamespaces"`
}
