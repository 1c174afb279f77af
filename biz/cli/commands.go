package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	autoscalingv1 "k8s.io/api/autoscaling/v1"

	"github.com/beastpu/kruise-proxy-mcp/biz/output"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

func newListCommand() *cobra.Command {
	var (
		namespace     string
		allNamespaces bool
		pageNum       int
		pageSize      int
		selector      string
	)
	cmd := &cobra.Command{
		Use:     "list KIND",
		Aliases: []string{"ls"},
		Short:   "List resources of a kind in a cluster",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			_, ops, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			cluster, err := rt.cluster()
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}

			opts := proxy.ListOptions{LabelSelector: selector}
			if pageNum != 0 || pageSize != 0 {
				// partial pagination is rejected by the client
				opts.Page = &proxy.PageRequest{PageNum: pageNum, PageSize: pageSize}
			}
			ns := namespace
			if allNamespaces {
				ns = ""
			}
			list, table, err := ops.List(cmd.Context(), client, cluster, ns, opts)
			if err != nil {
				return err
			}
			return output.Write(rt.writer, rt.format, table, list)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace to list from")
	cmd.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "List across all namespaces")
	cmd.Flags().IntVar(&pageNum, "page", 0, "Page number, requires --page-size")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size, requires --page")
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "Label selector")
	return cmd
}

func newGetCommand() *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "get KIND NAME",
		Short: "Show one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			_, ops, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			cluster, err := rt.cluster()
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			obj, detail, err := ops.Get(cmd.Context(), client, cluster, namespace, args[1])
			if err != nil {
				return err
			}
			return output.Write(rt.writer, rt.format, detail, obj)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the resource")
	return cmd
}

func newScaleCommand() *cobra.Command {
	var (
		namespace string
		replicas  string
	)
	cmd := &cobra.Command{
		Use:   "scale KIND NAME --replicas N",
		Short: "Set the replica count of a CloneSet or Advanced StatefulSet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			desc, ops, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			if !ops.Scalable() {
				return fmt.Errorf("%s does not support scaling", ops.Label())
			}
			n, err := proxy.ParseReplicas(replicas)
			if err != nil {
				return err
			}
			cluster, err := rt.cluster()
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}

			patch, err := proxy.ReplicasPatch(n)
			if err != nil {
				return err
			}
			var scale autoscalingv1.Scale
			if err := client.Scale(cmd.Context(), cluster, desc, namespace, args[1], patch, &scale); err != nil {
				return err
			}
			msg := rt.messages.T("kruise.scale.success", ops.Label(), args[1], namespace, n)
			return output.Write(rt.writer, rt.format, msg, &scale)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the resource")
	cmd.Flags().StringVar(&replicas, "replicas", "", "Desired replica count")
	_ = cmd.MarkFlagRequired("replicas")
	return cmd
}

func newPatchCommand() *cobra.Command {
	var (
		namespace string
		patch     string
		patchFile string
		patchType string
	)
	cmd := &cobra.Command{
		Use:   "patch KIND NAME (-p PATCH | --patch-file FILE)",
		Short: "Patch a resource with a merge, strategic merge or JSON patch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			_, ops, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			body, err := readPatch(patch, patchFile)
			if err != nil {
				return err
			}
			pt, err := proxy.ParsePatchType(patchType)
			if err != nil {
				return err
			}
			cluster, err := rt.cluster()
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}

			obj, err := ops.Patch(cmd.Context(), client, cluster, namespace, args[1], body, pt)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("%s/%s: %s", strings.ToLower(ops.Label()), args[1], rt.messages.T("commons.msg.update_success"))
			return output.Write(rt.writer, rt.format, msg, obj)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the resource")
	cmd.Flags().StringVarP(&patch, "patch", "p", "", "Patch document as JSON")
	cmd.Flags().StringVar(&patchFile, "patch-file", "", "File holding the patch document")
	cmd.Flags().StringVar(&patchType, "type", "merge", "Patch type: merge, strategic or json")
	return cmd
}

func readPatch(inline, file string) ([]byte, error) {
	var body []byte
	switch {
	case inline != "" && file != "":
		return nil, errors.New("--patch and --patch-file are mutually exclusive")
	case inline != "":
		body = []byte(inline)
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read patch file: %w", err)
		}
		body = content
	default:
		return nil, errors.New("one of --patch or --patch-file is required")
	}
	if !json.Valid(body) {
		return nil, errors.New("patch is not valid JSON")
	}
	return body, nil
}

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the supported kinds and their API paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tAPIVERSION\tRESOURCE\tNAMESPACED")
			seen := map[proxy.Descriptor]bool{}
			for _, name := range proxy.Kinds() {
				desc, ops, err := lookupKind(name)
				if err != nil || seen[desc] {
					continue
				}
				seen[desc] = true
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", ops.Label(), desc.GroupVersion(), desc.Resource, !desc.ClusterScoped)
			}
			return w.Flush()
		},
	}
}
