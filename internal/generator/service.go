package generator

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/kstack-dev/kstack/internal/naming"
	"github.com/kstack-dev/kstack/internal/translator"
)

// generateServices emits the Service resources for an app:
//
//  1. a ClusterIP named after the app carrying the first port mapping,
//  2. a LoadBalancer "<app>-lb" for any additional port mappings,
//  3. a ClusterIP "<app>-<sidecar>" for each sidecar with ports.
//
// All services select the app's pods; sidecars share the pod, so their
// services reuse the same selector.
func (g *KubeGenerator) generateServices(app *translator.ResolvedApp) []corev1.Service {
	var services []corev1.Service

	main := app.Containers[0]
	if len(main.Ports) > 0 {
		services = append(services, g.service(
			naming.Service(app.Name), app.Name, corev1.ServiceTypeClusterIP, main.Ports[:1]))

		if len(main.Ports) > 1 {
			services = append(services, g.service(
				naming.LBService(app.Name), app.Name, corev1.ServiceTypeLoadBalancer, main.Ports[1:]))
		}
	} else if len(app.Expose) > 0 {
		// No declared ports but exposed hosts: the Ingress still needs a
		// backend, so publish the expose ports directly.
		var bindings []translator.PortBinding
		for _, rule := range app.Expose {
			port := rule.Port
			if port == 0 {
				port = 80
			}
			bindings = append(bindings, translator.PortBinding{
				HostPort: port, ContainerPort: port, Protocol: "TCP",
			})
		}
		services = append(services, g.service(
			naming.Service(app.Name), app.Name, corev1.ServiceTypeClusterIP, bindings))
	}

	for _, c := range app.Containers[1:] {
		if len(c.Ports) == 0 {
			continue
		}
		services = append(services, g.service(
			c.Name, app.Name, corev1.ServiceTypeClusterIP, c.Ports))
	}

	return services
}

func (g *KubeGenerator) service(name, app string, typ corev1.ServiceType, bindings []translator.PortBinding) corev1.Service {
	var ports []corev1.ServicePort
	for _, b := range bindings {
		ports = append(ports, corev1.ServicePort{
			Name:       naming.Port(b.HostPort),
			Port:       int32(b.HostPort),
			TargetPort: intstr.FromInt32(int32(b.ContainerPort)),
			Protocol:   corev1.Protocol(b.Protocol),
		})
	}

	return corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: g.namespace,
			Labels:    naming.Labels(app),
		},
		Spec: corev1.ServiceSpec{
			Type:     typ,
			Ports:    ports,
			Selector: naming.Labels(app),
		},
	}
}
