// Package proxy implements a typed client for the console's multi-cluster
// Kubernetes proxy. Requests are addressed as
// /api/v1/proxy/{cluster}/k8s/apis/{group}/{version}/... and forwarded by the
// console to the registered cluster.
//
// The client builds every path through BuildPath, validates caller input before
// any I/O and reports failures as InvalidArgumentError, NetworkError,
// RemoteError or DecodeError. Nothing is retried: PATCH and scale carry no
// conflict token, so retry policy belongs to the caller.
package proxy
