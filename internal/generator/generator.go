package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	"sigs.k8s.io/yaml"

	"github.com/kstack-dev/kstack/internal/translator"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

// DefaultIngressClass is used when an expose rule does not pick one.
const DefaultIngressClass = "traefik"

// ManifestSet is the lowered output of one stack file, grouped by kind in
// dependency order: ConfigMaps and PVCs first, Deployments and Ingresses
// last. Apply walks the groups forward, destroy walks them backward.
type ManifestSet struct {
	ConfigMaps  []corev1.ConfigMap
	PVCs        []corev1.PersistentVolumeClaim
	Services    []corev1.Service
	Deployments []appsv1.Deployment
	Ingresses   []networkingv1.Ingress
}

// Empty reports whether the set contains no manifests.
func (s *ManifestSet) Empty() bool {
	return len(s.ConfigMaps)+len(s.PVCs)+len(s.Services)+len(s.Deployments)+len(s.Ingresses) == 0
}

// Counts returns the number of manifests per kind, in emission order.
func (s *ManifestSet) Counts() map[string]int {
	return map[string]int{
		"ConfigMap":             len(s.ConfigMaps),
		"PersistentVolumeClaim": len(s.PVCs),
		"Service":               len(s.Services),
		"Deployment":            len(s.Deployments),
		"Ingress":               len(s.Ingresses),
	}
}

// addConfigMap deduplicates by identity: an identical object under the same
// name is dropped, a different one is a consistency conflict.
func (s *ManifestSet) addConfigMap(cm corev1.ConfigMap) error {
	for _, existing := range s.ConfigMaps {
		if existing.Name != cm.Name {
			continue
		}
		if apiequality.Semantic.DeepEqual(existing, cm) {
			return nil
		}
		return &translator.ConsistencyError{Kind: "ConfigMap", Name: cm.Name,
			Message: "declared more than once with different data"}
	}
	s.ConfigMaps = append(s.ConfigMaps, cm)
	return nil
}

func (s *ManifestSet) addPVC(pvc corev1.PersistentVolumeClaim) error {
	for _, existing := range s.PVCs {
		if existing.Name != pvc.Name {
			continue
		}
		if apiequality.Semantic.DeepEqual(existing, pvc) {
			return nil
		}
		return &translator.ConsistencyError{Kind: "PersistentVolumeClaim", Name: pvc.Name,
			Message: "declared more than once with different accessModes or storage"}
	}
	s.PVCs = append(s.PVCs, pvc)
	return nil
}

func (s *ManifestSet) addService(svc corev1.Service) error {
	for _, existing := range s.Services {
		if existing.Name != svc.Name {
			continue
		}
		if apiequality.Semantic.DeepEqual(existing, svc) {
			return nil
		}
		return &translator.ConsistencyError{Kind: "Service", Name: svc.Name,
			Message: "declared more than once with different ports or selectors"}
	}
	s.Services = append(s.Services, svc)
	return nil
}

// Marshal serializes the whole set as a multi-document YAML stream in
// dependency order. Serialization goes through sigs.k8s.io/yaml so field
// names follow the Kubernetes JSON tags and output is deterministic.
func (s *ManifestSet) Marshal() ([]byte, error) {
	var docs []interface{}
	for i := range s.ConfigMaps {
		docs = append(docs, &s.ConfigMaps[i])
	}
	for i := range s.PVCs {
		docs = append(docs, &s.PVCs[i])
	}
	for i := range s.Services {
		docs = append(docs, &s.Services[i])
	}
	for i := range s.Deployments {
		docs = append(docs, &s.Deployments[i])
	}
	for i := range s.Ingresses {
		docs = append(docs, &s.Ingresses[i])
	}

	var b strings.Builder
	for i, doc := range docs {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal manifest: %w", err)
		}
		b.Write(data)
		if i < len(docs)-1 {
			b.WriteString("---\n")
		}
	}
	return []byte(b.String()), nil
}

// WriteFiles writes the set to an output directory, one file per kind.
func (s *ManifestSet) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	write := func(name string, docs []interface{}) error {
		if len(docs) == 0 {
			return nil
		}
		var b strings.Builder
		for i, doc := range docs {
			data, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to marshal manifest: %w", err)
			}
			b.Write(data)
			if i < len(docs)-1 {
				b.WriteString("---\n")
			}
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Debug("Wrote manifest file: " + path)
		return nil
	}

	var cms, pvcs, svcs, deps, ings []interface{}
	for i := range s.ConfigMaps {
		cms = append(cms, &s.ConfigMaps[i])
	}
	for i := range s.PVCs {
		pvcs = append(pvcs, &s.PVCs[i])
	}
	for i := range s.Services {
		svcs = append(svcs, &s.Services[i])
	}
	for i := range s.Deployments {
		deps = append(deps, &s.Deployments[i])
	}
	for i := range s.Ingresses {
		ings = append(ings, &s.Ingresses[i])
	}

	if err := write("configmaps.yaml", cms); err != nil {
		return err
	}
	if err := write("pvcs.yaml", pvcs); err != nil {
		return err
	}
	if err := write("services.yaml", svcs); err != nil {
		return err
	}
	if err := write("deployments.yaml", deps); err != nil {
		return err
	}
	return write("ingress.yaml", ings)
}

// KubeGenerator lowers a resolved stack into Kubernetes manifests.
type KubeGenerator struct {
	namespace string
}

// NewKubeGenerator creates a generator targeting the given namespace.
func NewKubeGenerator(namespace string) *KubeGenerator {
	if namespace == "" {
		namespace = "default"
	}
	return &KubeGenerator{namespace: namespace}
}

// Generate lowers every app, volume and referenced config. A consistency
// conflict aborts the whole generation: no partial set is returned.
func (g *KubeGenerator) Generate(rs *translator.ResolvedStack) (*ManifestSet, error) {
	logger.Debug("Lowering stack to Kubernetes manifests")

	set := &ManifestSet{}

	// PVCs first: deployments mount them.
	for _, name := range rs.Stack.VolumeNames() {
		pvc, err := g.generatePVC(name, rs.Stack.Volumes[name])
		if err != nil {
			return nil, err
		}
		if err := set.addPVC(pvc); err != nil {
			return nil, err
		}
	}

	// ConfigMaps for every inline config referenced by some container.
	for _, name := range referencedConfigs(rs) {
		spec := rs.Stack.Configs[name]
		if spec == nil || spec.External {
			continue
		}
		if err := set.addConfigMap(g.generateConfigMap(name, spec)); err != nil {
			return nil, err
		}
	}

	for _, app := range rs.Apps {
		set.Deployments = append(set.Deployments, g.generateDeployment(app))

		for _, svc := range g.generateServices(app) {
			if err := set.addService(svc); err != nil {
				return nil, err
			}
		}

		if ing := g.generateIngress(app); ing != nil {
			set.Ingresses = append(set.Ingresses, *ing)
		}
	}

	return set, nil
}

// referencedConfigs collects the distinct config names referenced via
// envFrom or volumeFrom of any container, in stack declaration order.
func referencedConfigs(rs *translator.ResolvedStack) []string {
	used := map[string]bool{}
	for _, app := range rs.Apps {
		for _, c := range app.Containers {
			for _, name := range c.EnvFromConfigs {
				used[strings.TrimPrefix(name, "config-")] = true
			}
		}
		for _, vol := range app.PodVolumes {
			if vol.Kind != translator.PodVolumeConfigMap {
				continue
			}
			name := strings.TrimPrefix(vol.ConfigName, "config-")
			used[name] = true
		}
	}

	var names []string
	for _, name := range rs.Stack.ConfigNames() {
		if used[name] {
			names = append(names, name)
		}
	}
	return names
}
