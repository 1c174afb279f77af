package node

// NodeParams defines parameters for node operations
type NodeParams struct {
	Cluster  string `json:"cluster"`
	NodeName string `json:"nodeName"`
}

// NodeListParams defines parameters for listing nodes
type NodeListParams struct {
	Cluster       string `json:"cluster"`
	LabelSelector string `json:"labelSelector"`
}
