package generator

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kstack-dev/kstack/internal/model"
	"github.com/kstack-dev/kstack/internal/naming"
)

const defaultStorage = "1Gi"

// generatePVC lowers a top-level volume into a PersistentVolumeClaim with
// the declared access modes and storage size.
func (g *KubeGenerator) generatePVC(name string, spec *model.VolumeSpec) (corev1.PersistentVolumeClaim, error) {
	storage := spec.Storage
	if storage == "" {
		storage = defaultStorage
	}
	quantity, err := resource.ParseQuantity(storage)
	if err != nil {
		return corev1.PersistentVolumeClaim{}, fmt.Errorf("volume %q has invalid storage size %q: %w", name, storage, err)
	}

	modes := []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}
	if len(spec.AccessModes) > 0 {
		modes = modes[:0]
		for _, m := range spec.AccessModes {
			modes = append(modes, corev1.PersistentVolumeAccessMode(m))
		}
	}

	return corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: g.namespace,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: modes,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
		},
	}, nil
}

// generateConfigMap lowers an inline config into a ConfigMap named by the
// naming policy.
func (g *KubeGenerator) generateConfigMap(name string, spec *model.ConfigSpec) corev1.ConfigMap {
	return corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.ConfigMap(name),
			Namespace: g.namespace,
		},
		Data: spec.Data,
	}
}
