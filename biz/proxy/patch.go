package proxy

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/types"
)

// ParsePatchType maps the short names merge, strategic and json to patch
// types. Empty means merge.
func ParsePatchType(s string) (types.PatchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return types.MergePatchType, nil
	case "strategic":
		return types.StrategicMergePatchType, nil
	case "json":
		return types.JSONPatchType, nil
	default:
		return "", invalidArgument("patchType", fmt.Sprintf("unsupported patch type %q, expected merge, strategic or json", s))
	}
}

// ParseReplicas parses a non-negative replica count.
func ParseReplicas(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, invalidArgument("replicas", fmt.Sprintf("could not convert %q to integer", s))
	}
	if n < 0 {
		return 0, invalidArgument("replicas", "must not be negative")
	}
	return int32(n), nil
}
