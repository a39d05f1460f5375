package generator

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kstack-dev/kstack/internal/naming"
	"github.com/kstack-dev/kstack/internal/translator"
)

// generateDeployment lowers one resolved app into a Deployment carrying the
// primary container plus its sidecars in declaration order.
func (g *KubeGenerator) generateDeployment(app *translator.ResolvedApp) appsv1.Deployment {
	replicas := int32(1)

	containers := make([]corev1.Container, 0, len(app.Containers))
	for _, c := range app.Containers {
		containers = append(containers, g.generateContainer(c))
	}

	return appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Deployment(app.Name),
			Namespace: g.namespace,
			Labels:    naming.Labels(app.Name),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: naming.Labels(app.Name)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: naming.Labels(app.Name)},
				Spec: corev1.PodSpec{
					Containers: containers,
					Volumes:    g.generatePodVolumes(app.PodVolumes),
				},
			},
		},
	}
}

func (g *KubeGenerator) generateContainer(c *translator.ResolvedContainer) corev1.Container {
	container := corev1.Container{
		Name:    c.Name,
		Image:   c.Image,
		Command: c.Command,
	}

	for _, b := range c.Ports {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			ContainerPort: int32(b.ContainerPort),
			Protocol:      corev1.Protocol(b.Protocol),
		})
	}

	for _, e := range c.Env {
		if e.SecretName != "" {
			container.Env = append(container.Env, corev1.EnvVar{
				Name: e.Name,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: e.SecretName},
						Key:                  e.SecretKey,
					},
				},
			})
			continue
		}
		container.Env = append(container.Env, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}

	for _, name := range c.EnvFromSecrets {
		container.EnvFrom = append(container.EnvFrom, corev1.EnvFromSource{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: name},
			},
		})
	}
	// EnvFromConfigs already carries ConfigMap reference names resolved
	// against each config's external flag.
	for _, name := range c.EnvFromConfigs {
		container.EnvFrom = append(container.EnvFrom, corev1.EnvFromSource{
			ConfigMapRef: &corev1.ConfigMapEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: name},
			},
		})
	}

	for _, m := range c.Mounts {
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      m.VolumeName,
			MountPath: m.MountPath,
			SubPath:   m.SubPath,
			ReadOnly:  m.ReadOnly,
		})
	}

	return container
}

func (g *KubeGenerator) generatePodVolumes(volumes []translator.PodVolume) []corev1.Volume {
	var out []corev1.Volume
	for _, v := range volumes {
		vol := corev1.Volume{Name: v.Name}
		switch v.Kind {
		case translator.PodVolumeClaim:
			vol.PersistentVolumeClaim = &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: v.ClaimName,
			}
		case translator.PodVolumeHostPath:
			t := corev1.HostPathDirectory
			vol.HostPath = &corev1.HostPathVolumeSource{Path: v.HostPath, Type: &t}
		case translator.PodVolumeHostFile:
			t := corev1.HostPathFile
			vol.HostPath = &corev1.HostPathVolumeSource{Path: v.HostPath, Type: &t}
		case translator.PodVolumeEmptyDir:
			vol.EmptyDir = &corev1.EmptyDirVolumeSource{}
		case translator.PodVolumeConfigMap:
			vol.ConfigMap = &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: v.ConfigName},
			}
		case translator.PodVolumeSecret:
			vol.Secret = &corev1.SecretVolumeSource{SecretName: v.SecretName}
		}
		out = append(out, vol)
	}
	return out
}
