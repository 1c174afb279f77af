package configmap

// ConfigMapParams defines parameters for getting a ConfigMap
type ConfigMapParams struct {
	Cluster       string `json:"cluster"`
	Namespace     string `json:"namespace"`
	ConfigMapName string `json:"configMapName"`
}

// ListConfigMapsParams defines parameters for listing ConfigMaps
type ListConfigMapsParams struct {
	Cluster       string `json:"cluster"`
	Namespace     string `json:"namespace"`
	LabelSelector string `json:"labelSelector"`
}
