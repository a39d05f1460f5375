package kube

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kstack-dev/kstack/internal/generator"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

const maxRetries = 4

// Apply submits the manifest set in dependency order: ConfigMaps and PVCs,
// then Services, then Deployments, then Ingresses. Resources within a stage
// are independent and applied concurrently; a stage failure stops the
// remaining stages but already-applied resources stay in place. There is no
// automatic rollback.
func (c *Client) Apply(ctx context.Context, set *generator.ManifestSet) error {
	runID := uuid.NewString()
	logger.Info("Applying resources",
		zap.String("run", runID),
		zap.String("namespace", c.namespace))

	stages := []func(ctx context.Context) error{
		func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			for i := range set.ConfigMaps {
				cm := &set.ConfigMaps[i]
				g.Go(func() error { return c.applyConfigMap(ctx, cm) })
			}
			for i := range set.PVCs {
				pvc := &set.PVCs[i]
				g.Go(func() error { return c.applyPVC(ctx, pvc) })
			}
			return g.Wait()
		},
		func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			for i := range set.Services {
				svc := &set.Services[i]
				g.Go(func() error { return c.applyService(ctx, svc) })
			}
			return g.Wait()
		},
		func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			for i := range set.Deployments {
				dep := &set.Deployments[i]
				g.Go(func() error { return c.applyDeployment(ctx, dep) })
			}
			return g.Wait()
		},
		func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			for i := range set.Ingresses {
				ing := &set.Ingresses[i]
				g.Go(func() error { return c.applyIngress(ctx, ing) })
			}
			return g.Wait()
		},
	}

	for _, stage := range stages {
		if err := stage(ctx); err != nil {
			return err
		}
	}

	logger.Info("Apply complete", zap.String("run", runID))
	return nil
}

// Delete removes the manifest set in reverse dependency order so nothing is
// left referencing a volume or config that is already gone. Missing
// resources are skipped.
func (c *Client) Delete(ctx context.Context, set *generator.ManifestSet) error {
	runID := uuid.NewString()
	logger.Info("Deleting resources",
		zap.String("run", runID),
		zap.String("namespace", c.namespace))

	opts := metav1.DeleteOptions{}
	for i := range set.Ingresses {
		err := c.clientset.NetworkingV1().Ingresses(c.namespace).Delete(ctx, set.Ingresses[i].Name, opts)
		if err := ignoreNotFound("delete", "Ingress", set.Ingresses[i].Name, err); err != nil {
			return err
		}
	}
	for i := range set.Deployments {
		err := c.clientset.AppsV1().Deployments(c.namespace).Delete(ctx, set.Deployments[i].Name, opts)
		if err := ignoreNotFound("delete", "Deployment", set.Deployments[i].Name, err); err != nil {
			return err
		}
	}
	for i := range set.Services {
		err := c.clientset.CoreV1().Services(c.namespace).Delete(ctx, set.Services[i].Name, opts)
		if err := ignoreNotFound("delete", "Service", set.Services[i].Name, err); err != nil {
			return err
		}
	}
	for i := range set.ConfigMaps {
		err := c.clientset.CoreV1().ConfigMaps(c.namespace).Delete(ctx, set.ConfigMaps[i].Name, opts)
		if err := ignoreNotFound("delete", "ConfigMap", set.ConfigMaps[i].Name, err); err != nil {
			return err
		}
	}
	for i := range set.PVCs {
		err := c.clientset.CoreV1().PersistentVolumeClaims(c.namespace).Delete(ctx, set.PVCs[i].Name, opts)
		if err := ignoreNotFound("delete", "PersistentVolumeClaim", set.PVCs[i].Name, err); err != nil {
			return err
		}
	}

	logger.Info("Delete complete", zap.String("run", runID))
	return nil
}

func ignoreNotFound(verb, kind, name string, err error) error {
	if err == nil || apierrors.IsNotFound(err) {
		return nil
	}
	return &ClusterError{Verb: verb, Kind: kind, Name: name, Err: err}
}

// withRetry runs op with bounded exponential backoff. Only transient API
// failures are retried; everything else fails immediately.
func withRetry(ctx context.Context, op func() error) error {
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackoff(), maxRetries), ctx)
	return backoff.Retry(attempt, policy)
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

func isTransient(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsConflict(err)
}

// upsert implements the read-patch-create cycle shared by every kind: patch
// when the resource exists, create on 404.
func upsert(ctx context.Context, kind, name string,
	get func(ctx context.Context) error,
	create func(ctx context.Context) error,
	patch func(ctx context.Context) error,
) error {
	op := func() error {
		if err := get(ctx); err != nil {
			if apierrors.IsNotFound(err) {
				logger.Debug("Creating resource", zap.String("kind", kind), zap.String("name", name))
				return create(ctx)
			}
			return err
		}
		logger.Debug("Patching resource", zap.String("kind", kind), zap.String("name", name))
		return patch(ctx)
	}
	if err := withRetry(ctx, op); err != nil {
		return &ClusterError{Verb: "apply", Kind: kind, Name: name, Err: err}
	}
	return nil
}

func patchBytes(obj interface{}) ([]byte, error) {
	return json.Marshal(obj)
}

func patchOptions() metav1.PatchOptions {
	return metav1.PatchOptions{FieldManager: FieldManager}
}

func createOptions() metav1.CreateOptions {
	return metav1.CreateOptions{FieldManager: FieldManager}
}
