package biz

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	appsv1alpha1 "github.com/openkruise/kruise-api/apps/v1alpha1"
	appsv1beta1 "github.com/openkruise/kruise-api/apps/v1beta1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/duration"
)

const (
	none       = "<none>"
	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// renderTable lays out rows under header with kubectl-style column padding.
func renderTable(header []string, rows [][]string) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 8, 3, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	return sb.String()
}

// describer writes "Key: value" blocks with aligned values.
type describer struct {
	sb strings.Builder
	w  *tabwriter.Writer
}

func newDescriber() *describer {
	d := &describer{}
	d.w = tabwriter.NewWriter(&d.sb, 0, 8, 2, ' ', 0)
	return d
}

func (d *describer) field(indent int, key string, value any) {
	fmt.Fprintf(d.w, "%s%s:\t%v\n", strings.Repeat("  ", indent), key, value)
}

func (d *describer) line(indent int, format string, args ...any) {
	fmt.Fprintf(d.w, strings.Repeat("  ", indent)+format+"\n", args...)
}

// labels writes a map in key order, or <none>.
func (d *describer) labels(indent int, title string, m map[string]string) {
	if len(m) == 0 {
		d.field(indent, title, none)
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d.field(indent, title, keys[0]+"="+m[keys[0]])
	for _, k := range keys[1:] {
		fmt.Fprintf(d.w, "%s\t%s=%s\n", strings.Repeat("  ", indent), k, m[k])
	}
}

func (d *describer) String() string {
	_ = d.w.Flush()
	return d.sb.String()
}

// Age renders the time since t the way kubectl does, e.g. 5m or 3d4h.
func Age(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	return duration.HumanDuration(time.Since(t))
}

func replicasOf(p *int32) int32 {
	if p == nil {
		return 1
	}
	return *p
}

func FormatCloneSetsTable(items []appsv1alpha1.CloneSet) string {
	rows := make([][]string, 0, len(items))
	for _, cs := range items {
		rows = append(rows, []string{
			cs.Namespace,
			cs.Name,
			fmt.Sprint(replicasOf(cs.Spec.Replicas)),
			fmt.Sprintf("%d/%d", cs.Status.ReadyReplicas, cs.Status.Replicas),
			fmt.Sprint(cs.Status.UpdatedReplicas),
			fmt.Sprint(cs.Status.AvailableReplicas),
			Age(cs.CreationTimestamp.Time),
		})
	}
	return renderTable([]string{"NAMESPACE", "NAME", "DESIRED", "READY", "UPDATED", "AVAILABLE", "AGE"}, rows)
}

func FormatAdvancedStatefulSetsTable(items []appsv1beta1.StatefulSet) string {
	rows := make([][]string, 0, len(items))
	for _, sts := range items {
		rows = append(rows, []string{
			sts.Namespace,
			sts.Name,
			fmt.Sprint(replicasOf(sts.Spec.Replicas)),
			fmt.Sprintf("%d/%d", sts.Status.ReadyReplicas, sts.Status.Replicas),
			fmt.Sprint(sts.Status.UpdatedReplicas),
			Age(sts.CreationTimestamp.Time),
		})
	}
	return renderTable([]string{"NAMESPACE", "NAME", "DESIRED", "READY", "UPDATED", "AGE"}, rows)
}

func FormatPodsTable(pods []corev1.Pod) string {
	rows := make([][]string, 0, len(pods))
	for i := range pods {
		pod := &pods[i]
		ready, restarts := 0, int32(0)
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.Ready {
				ready++
			}
			restarts += cs.RestartCount
		}
		rows = append(rows, []string{
			pod.Namespace,
			pod.Name,
			fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
			GetPodStatus(pod),
			fmt.Sprint(restarts),
			Age(pod.CreationTimestamp.Time),
			valueOr(pod.Status.PodIP, none),
			valueOr(pod.Spec.NodeName, none),
		})
	}
	return renderTable([]string{"NAMESPACE", "NAME", "READY", "STATUS", "RESTARTS", "AGE", "IP", "NODE"}, rows)
}

func FormatNodesTable(nodes []corev1.Node) string {
	rows := make([][]string, 0, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		rows = append(rows, []string{
			node.Name,
			GetNodeStatus(node),
			GetNodeRole(node),
			Age(node.CreationTimestamp.Time),
			node.Status.NodeInfo.KubeletVersion,
		})
	}
	return renderTable([]string{"NAME", "STATUS", "ROLES", "AGE", "VERSION"}, rows)
}

func FormatConfigMapsTable(cms []corev1.ConfigMap) string {
	rows := make([][]string, 0, len(cms))
	for _, cm := range cms {
		rows = append(rows, []string{
			cm.Namespace,
			cm.Name,
			fmt.Sprint(len(cm.Data) + len(cm.BinaryData)),
			Age(cm.CreationTimestamp.Time),
		})
	}
	return renderTable([]string{"NAMESPACE", "NAME", "DATA", "AGE"}, rows)
}

func FormatCloneSetDetail(cs *appsv1alpha1.CloneSet) string {
	d := newDescriber()
	d.field(0, "Name", cs.Name)
	d.field(0, "Namespace", cs.Namespace)
	d.field(0, "CreationTimestamp", fmt.Sprintf("%s (%s ago)", cs.CreationTimestamp.Format(timeLayout), Age(cs.CreationTimestamp.Time)))
	d.labels(0, "Labels", cs.Labels)
	d.labels(0, "Annotations", cs.Annotations)
	if cs.Spec.Selector != nil {
		d.labels(0, "Selector", cs.Spec.Selector.MatchLabels)
	} else {
		d.field(0, "Selector", none)
	}
	d.field(0, "Replicas", fmt.Sprintf("%d desired | %d total | %d ready | %d available | %d updated | %d updated ready",
		replicasOf(cs.Spec.Replicas), cs.Status.Replicas, cs.Status.ReadyReplicas,
		cs.Status.AvailableReplicas, cs.Status.UpdatedReplicas, cs.Status.UpdatedReadyReplicas))
	d.field(0, "Observed Generation", cs.Status.ObservedGeneration)
	if cs.Status.UpdateRevision != "" {
		d.field(0, "Update Revision", cs.Status.UpdateRevision)
	}

	strategy := cs.Spec.UpdateStrategy
	d.field(0, "Update Strategy", valueOr(string(strategy.Type), string(appsv1alpha1.RecreateCloneSetUpdateStrategyType)))
	if strategy.Partition != nil {
		d.field(1, "Partition", strategy.Partition.String())
	}
	if strategy.MaxUnavailable != nil {
		d.field(1, "MaxUnavailable", strategy.MaxUnavailable.String())
	}
	if strategy.MaxSurge != nil {
		d.field(1, "MaxSurge", strategy.MaxSurge.String())
	}
	d.field(1, "Paused", strategy.Paused)

	describePodTemplate(d, &cs.Spec.Template)
	describeClaimTemplates(d, cs.Spec.VolumeClaimTemplates)
	return d.String()
}

func FormatAdvancedStatefulSetDetail(sts *appsv1beta1.StatefulSet) string {
	d := newDescriber()
	d.field(0, "Name", sts.Name)
	d.field(0, "Namespace", sts.Namespace)
	d.field(0, "CreationTimestamp", fmt.Sprintf("%s (%s ago)", sts.CreationTimestamp.Format(timeLayout), Age(sts.CreationTimestamp.Time)))
	d.labels(0, "Labels", sts.Labels)
	d.labels(0, "Annotations", sts.Annotations)
	if sts.Spec.Selector != nil {
		d.labels(0, "Selector", sts.Spec.Selector.MatchLabels)
	} else {
		d.field(0, "Selector", none)
	}
	d.field(0, "Replicas", fmt.Sprintf("%d desired | %d total | %d ready | %d current | %d updated",
		replicasOf(sts.Spec.Replicas), sts.Status.Replicas, sts.Status.ReadyReplicas,
		sts.Status.CurrentReplicas, sts.Status.UpdatedReplicas))
	d.field(0, "Pod Management Policy", valueOr(string(sts.Spec.PodManagementPolicy), "OrderedReady"))

	d.field(0, "Update Strategy", valueOr(string(sts.Spec.UpdateStrategy.Type), "RollingUpdate"))
	if ru := sts.Spec.UpdateStrategy.RollingUpdate; ru != nil {
		if ru.Partition != nil {
			d.field(1, "Partition", *ru.Partition)
		}
		if ru.MaxUnavailable != nil {
			d.field(1, "MaxUnavailable", ru.MaxUnavailable.String())
		}
		d.field(1, "Paused", ru.Paused)
	}

	describePodTemplate(d, &sts.Spec.Template)
	describeClaimTemplates(d, sts.Spec.VolumeClaimTemplates)
	return d.String()
}

func describePodTemplate(d *describer, tpl *corev1.PodTemplateSpec) {
	d.line(0, "Pod Template:")
	d.labels(1, "Labels", tpl.Labels)
	describeContainers(d, 1, tpl.Spec.Containers)
}

func describeContainers(d *describer, indent int, containers []corev1.Container) {
	if len(containers) == 0 {
		d.field(indent, "Containers", none)
		return
	}
	d.line(indent, "Containers:")
	for _, c := range containers {
		d.line(indent+1, "%s:", c.Name)
		d.field(indent+2, "Image", c.Image)
		for _, p := range c.Ports {
			d.field(indent+2, "Port", fmt.Sprintf("%d/%s %s", p.ContainerPort, valueOr(string(p.Protocol), "TCP"), p.Name))
		}
		describeResources(d, indent+2, "Limits", c.Resources.Limits)
		describeResources(d, indent+2, "Requests", c.Resources.Requests)
	}
}

func describeResources(d *describer, indent int, title string, list corev1.ResourceList) {
	if len(list) == 0 {
		return
	}
	names := make([]string, 0, len(list))
	for name := range list {
		names = append(names, string(name))
	}
	sort.Strings(names)
	d.line(indent, "%s:", title)
	for _, name := range names {
		q := list[corev1.ResourceName(name)]
		d.field(indent+1, name, q.String())
	}
}

func describeClaimTemplates(d *describer, claims []corev1.PersistentVolumeClaim) {
	if len(claims) == 0 {
		return
	}
	d.line(0, "Volume Claim Templates:")
	for _, pvc := range claims {
		d.line(1, "%s:", pvc.Name)
		d.field(2, "Access Modes", fmt.Sprint(pvc.Spec.AccessModes))
		if storage, ok := pvc.Spec.Resources.Requests[corev1.ResourceStorage]; ok {
			d.field(2, "Capacity", storage.String())
		}
		if pvc.Spec.StorageClassName != nil {
			d.field(2, "StorageClass", *pvc.Spec.StorageClassName)
		}
	}
}

func FormatPodDetail(pod *corev1.Pod) string {
	d := newDescriber()
	d.field(0, "Name", pod.Name)
	d.field(0, "Namespace", pod.Namespace)
	d.field(0, "Node", valueOr(pod.Spec.NodeName, none))
	if pod.Status.StartTime != nil {
		d.field(0, "Start Time", pod.Status.StartTime.Format(timeLayout))
	}
	d.labels(0, "Labels", pod.Labels)
	d.field(0, "Status", GetPodStatus(pod))
	d.field(0, "IP", valueOr(pod.Status.PodIP, none))
	for _, ref := range pod.OwnerReferences {
		d.field(0, "Controlled By", ref.Kind+"/"+ref.Name)
	}
	describeContainers(d, 0, pod.Spec.Containers)
	if len(pod.Status.ContainerStatuses) > 0 {
		d.line(0, "Container Statuses:")
		for _, cs := range pod.Status.ContainerStatuses {
			d.line(1, "%s:", cs.Name)
			d.field(2, "Ready", cs.Ready)
			d.field(2, "Restart Count", cs.RestartCount)
			switch {
			case cs.State.Running != nil:
				d.field(2, "State", "Running")
			case cs.State.Waiting != nil:
				d.field(2, "State", "Waiting: "+cs.State.Waiting.Reason)
			case cs.State.Terminated != nil:
				d.field(2, "State", "Terminated: "+cs.State.Terminated.Reason)
			}
		}
	}
	if len(pod.Spec.Volumes) > 0 {
		d.line(0, "Volumes:")
		for _, v := range pod.Spec.Volumes {
			d.field(1, v.Name, volumeSource(v))
		}
	}
	return d.String()
}

func volumeSource(v corev1.Volume) string {
	switch {
	case v.PersistentVolumeClaim != nil:
		return "PersistentVolumeClaim " + v.PersistentVolumeClaim.ClaimName
	case v.ConfigMap != nil:
		return "ConfigMap " + v.ConfigMap.Name
	case v.Secret != nil:
		return "Secret " + v.Secret.SecretName
	case v.EmptyDir != nil:
		return "EmptyDir"
	case v.HostPath != nil:
		return "HostPath " + v.HostPath.Path
	case v.Projected != nil:
		return "Projected"
	default:
		return "Other"
	}
}

func FormatNodeDetail(node *corev1.Node) string {
	d := newDescriber()
	d.field(0, "Name", node.Name)
	d.field(0, "Roles", GetNodeRole(node))
	d.labels(0, "Labels", node.Labels)
	d.field(0, "CreationTimestamp", fmt.Sprintf("%s (%s ago)", node.CreationTimestamp.Format(timeLayout), Age(node.CreationTimestamp.Time)))
	d.field(0, "Status", GetNodeStatus(node))
	d.field(0, "Unschedulable", node.Spec.Unschedulable)
	if len(node.Spec.Taints) > 0 {
		taints := make([]string, 0, len(node.Spec.Taints))
		for _, t := range node.Spec.Taints {
			taints = append(taints, t.ToString())
		}
		d.field(0, "Taints", strings.Join(taints, ", "))
	}
	if len(node.Status.Addresses) > 0 {
		d.line(0, "Addresses:")
		for _, addr := range node.Status.Addresses {
			d.field(1, string(addr.Type), addr.Address)
		}
	}
	describeResources(d, 0, "Capacity", node.Status.Capacity)
	describeResources(d, 0, "Allocatable", node.Status.Allocatable)

	info := node.Status.NodeInfo
	d.line(0, "System Info:")
	d.field(1, "OS Image", info.OSImage)
	d.field(1, "Kernel Version", info.KernelVersion)
	d.field(1, "Container Runtime Version", info.ContainerRuntimeVersion)
	d.field(1, "Kubelet Version", info.KubeletVersion)
	return d.String()
}

func FormatConfigMapDetail(cm *corev1.ConfigMap) string {
	d := newDescriber()
	d.field(0, "Name", cm.Name)
	d.field(0, "Namespace", cm.Namespace)
	d.field(0, "CreationTimestamp", cm.CreationTimestamp.Format(timeLayout))
	d.labels(0, "Labels", cm.Labels)
	d.labels(0, "Annotations", cm.Annotations)
	out := d.String()

	var sb strings.Builder
	sb.WriteString(out)
	sb.WriteString("\nData\n====\n")
	keys := make([]string, 0, len(cm.Data))
	for k := range cm.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s:\n----\n%s\n\n", k, cm.Data[k])
	}
	if len(cm.BinaryData) > 0 {
		sb.WriteString("BinaryData\n====\n")
		bkeys := make([]string, 0, len(cm.BinaryData))
		for k := range cm.BinaryData {
			bkeys = append(bkeys, k)
		}
		sort.Strings(bkeys)
		for _, k := range bkeys {
			fmt.Fprintf(&sb, "%s: %d bytes\n", k, len(cm.BinaryData[k]))
		}
	}
	return sb.String()
}

// FormatScale renders the Scale returned by the scale subresource.
func FormatScale(s *autoscalingv1.Scale) string {
	d := newDescriber()
	d.field(0, "Name", s.Name)
	d.field(0, "Namespace", s.Namespace)
	d.field(0, "Spec Replicas", s.Spec.Replicas)
	d.field(0, "Status Replicas", s.Status.Replicas)
	if s.Status.Selector != "" {
		d.field(0, "Selector", s.Status.Selector)
	}
	return d.String()
}

// GetPodStatus mirrors the STATUS column of kubectl get pods.
func GetPodStatus(pod *corev1.Pod) string {
	if pod.DeletionTimestamp != nil {
		return "Terminating"
	}
	reason := string(pod.Status.Phase)
	if pod.Status.Reason != "" {
		reason = pod.Status.Reason
	}
	if pod.Status.Phase == corev1.PodFailed || pod.Status.Phase == corev1.PodSucceeded {
		return reason
	}

	for i, s := range pod.Status.InitContainerStatuses {
		switch {
		case s.State.Terminated != nil && s.State.Terminated.ExitCode == 0:
			continue
		case s.State.Terminated != nil && s.State.Terminated.Reason != "":
			return "Init:" + s.State.Terminated.Reason
		case s.State.Waiting != nil && s.State.Waiting.Reason != "" && s.State.Waiting.Reason != "PodInitializing":
			return "Init:" + s.State.Waiting.Reason
		default:
			return fmt.Sprintf("Init:%d/%d", i, len(pod.Spec.InitContainers))
		}
	}

	running, allReady := false, true
	for _, s := range pod.Status.ContainerStatuses {
		switch {
		case s.State.Waiting != nil && s.State.Waiting.Reason != "":
			return s.State.Waiting.Reason
		case s.State.Terminated != nil && s.State.Terminated.Reason != "":
			return s.State.Terminated.Reason
		case s.State.Running != nil:
			running = true
		}
		if !s.Ready {
			allReady = false
		}
	}
	if running && !allReady && pod.Status.Phase == corev1.PodRunning {
		return "Running,NotReady"
	}
	return reason
}

func GetNodeStatus(node *corev1.Node) string {
	status := "Unknown"
	for _, c := range node.Status.Conditions {
		if c.Type == corev1.NodeReady {
			status = "NotReady"
			if c.Status == corev1.ConditionTrue {
				status = "Ready"
			}
			break
		}
	}
	if node.Spec.Unschedulable {
		status += ",SchedulingDisabled"
	}
	return status
}

// GetNodeRole joins the node-role.kubernetes.io/* label suffixes.
func GetNodeRole(node *corev1.Node) string {
	const prefix = "node-role.kubernetes.io/"
	var roles []string
	for label := range node.Labels {
		if role, ok := strings.CutPrefix(label, prefix); ok && role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return none
	}
	sort.Strings(roles)
	return strings.Join(roles, ",")
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
