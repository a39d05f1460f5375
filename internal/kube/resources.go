package kube

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

func (c *Client) applyConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	api := c.clientset.CoreV1().ConfigMaps(c.namespace)
	data, err := patchBytes(cm)
	if err != nil {
		return err
	}
	return upsert(ctx, "ConfigMap", cm.Name,
		func(ctx context.Context) error {
			_, err := api.Get(ctx, cm.Name, metav1.GetOptions{})
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Create(ctx, cm, createOptions())
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Patch(ctx, cm.Name, types.StrategicMergePatchType, data, patchOptions())
			return err
		},
	)
}

func (c *Client) applyPVC(ctx context.Context, pvc *corev1.PersistentVolumeClaim) error {
	api := c.clientset.CoreV1().PersistentVolumeClaims(c.namespace)
	return upsert(ctx, "PersistentVolumeClaim", pvc.Name,
		func(ctx context.Context) error {
			_, err := api.Get(ctx, pvc.Name, metav1.GetOptions{})
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Create(ctx, pvc, createOptions())
			return err
		},
		// PVC specs are mostly immutable; an existing claim is left as is.
		func(ctx context.Context) error { return nil },
	)
}

func (c *Client) applyService(ctx context.Context, svc *corev1.Service) error {
	api := c.clientset.CoreV1().Services(c.namespace)
	data, err := patchBytes(svc)
	if err != nil {
		return err
	}
	return upsert(ctx, "Service", svc.Name,
		func(ctx context.Context) error {
			_, err := api.Get(ctx, svc.Name, metav1.GetOptions{})
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Create(ctx, svc, createOptions())
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Patch(ctx, svc.Name, types.StrategicMergePatchType, data, patchOptions())
			return err
		},
	)
}

func (c *Client) applyDeployment(ctx context.Context, dep *appsv1.Deployment) error {
	api := c.clientset.AppsV1().Deployments(c.namespace)
	data, err := patchBytes(dep)
	if err != nil {
		return err
	}
	return upsert(ctx, "Deployment", dep.Name,
		func(ctx context.Context) error {
			_, err := api.Get(ctx, dep.Name, metav1.GetOptions{})
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Create(ctx, dep, createOptions())
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Patch(ctx, dep.Name, types.StrategicMergePatchType, data, patchOptions())
			return err
		},
	)
}

func (c *Client) applyIngress(ctx context.Context, ing *networkingv1.Ingress) error {
	api := c.clientset.NetworkingV1().Ingresses(c.namespace)
	data, err := patchBytes(ing)
	if err != nil {
		return err
	}
	return upsert(ctx, "Ingress", ing.Name,
		func(ctx context.Context) error {
			_, err := api.Get(ctx, ing.Name, metav1.GetOptions{})
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Create(ctx, ing, createOptions())
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Patch(ctx, ing.Name, types.StrategicMergePatchType, data, patchOptions())
			return err
		},
	)
}

// EnsureExternalResources verifies that every referenced external ConfigMap
// and Secret actually exists in the target namespace.
func (c *Client) EnsureExternalResources(ctx context.Context, configs, secrets []string) error {
	for _, name := range configs {
		_, err := c.clientset.CoreV1().ConfigMaps(c.namespace).Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("external ConfigMap %q not found in namespace %q", name, c.namespace)
		}
		if err != nil {
			return &ClusterError{Verb: "get", Kind: "ConfigMap", Name: name, Err: err}
		}
	}
	for _, name := range secrets {
		_, err := c.clientset.CoreV1().Secrets(c.namespace).Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("external Secret %q not found in namespace %q", name, c.namespace)
		}
		if err != nil {
			return &ClusterError{Verb: "get", Kind: "Secret", Name: name, Err: err}
		}
	}
	return nil
}

// ApplySecret creates or updates an imperative Secret built from env file or
// literal key/value input.
func (c *Client) ApplySecret(ctx context.Context, name string, data map[string][]byte) error {
	secret := &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.namespace,
		},
		Data: data,
	}
	api := c.clientset.CoreV1().Secrets(c.namespace)
	raw, err := patchBytes(secret)
	if err != nil {
		return err
	}
	return upsert(ctx, "Secret", name,
		func(ctx context.Context) error {
			_, err := api.Get(ctx, name, metav1.GetOptions{})
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Create(ctx, secret, createOptions())
			return err
		},
		func(ctx context.Context) error {
			_, err := api.Patch(ctx, name, types.StrategicMergePatchType, raw, patchOptions())
			return err
		},
	)
}

// ApplyConfigMap creates or updates an imperative ConfigMap.
func (c *Client) ApplyConfigMap(ctx context.Context, name string, data map[string]string) error {
	cm := &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.namespace,
		},
		Data: data,
	}
	return c.applyConfigMap(ctx, cm)
}
