// Package naming is the single owner of the names generated resources carry.
// Pure functions only: the same input document must always produce the same
// names so re-applying an unchanged stack yields byte-identical manifests.
package naming

import "strconv"

// Deployment returns the Deployment name for an app.
func Deployment(app string) string { return app }

// Service returns the ClusterIP Service name for an app.
func Service(app string) string { return app }

// LBService returns the LoadBalancer Service name for an app's additional
// ports.
func LBService(app string) string { return app + "-lb" }

// Ingress returns the Ingress name for an app.
func Ingress(app string) string { return app }

// ConfigMap returns the ConfigMap name generated for an inline config.
// External configs are referenced by their cluster name instead.
func ConfigMap(config string) string { return "config-" + config }

// SidecarContainer returns the container name for a sidecar inside its app's
// pod. A sidecar's Service carries the same name.
func SidecarContainer(app, sidecar string) string { return app + "-" + sidecar }

// Volume returns the pod volume name for the mount at the given position
// within a container. The positional index keeps repeated mounts of the same
// source unique.
func Volume(container string, index int) string {
	return "vol-" + container + "-" + strconv.Itoa(index)
}

// SecretVolume returns the pod volume name for a secret file projection.
func SecretVolume(secret string) string { return "secret-" + secret }

// Port returns a deterministic Service port name.
func Port(port int) string { return "port-" + strconv.Itoa(port) }

// Labels returns the selector labels for an app's pods.
func Labels(app string) map[string]string {
	return map[string]string{"app": app}
}
