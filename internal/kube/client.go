package kube

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kstack-dev/kstack/internal/generator"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

// FieldManager identifies this tool in server-side resource tracking.
const FieldManager = "kstack"

// ClusterError wraps a failed cluster operation. The compiler never retries
// these beyond the client's own backoff; the user re-runs apply or destroy.
type ClusterError struct {
	Verb string
	Kind string
	Name string
	Err  error
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("failed to %s %s %q: %v", e.Verb, e.Kind, e.Name, e.Err)
}

func (e *ClusterError) Unwrap() error { return e.Err }

// ClusterClient is the collaborator interface the CLI talks to. The compiler
// itself never touches the cluster; everything behind this interface is
// idempotent apply/delete plumbing.
type ClusterClient interface {
	Apply(ctx context.Context, set *generator.ManifestSet) error
	Delete(ctx context.Context, set *generator.ManifestSet) error
	IsReachable(ctx context.Context) bool
	EnsureExternalResources(ctx context.Context, configs, secrets []string) error
	ApplySecret(ctx context.Context, name string, data map[string][]byte) error
	ApplyConfigMap(ctx context.Context, name string, data map[string]string) error
}

// Client implements ClusterClient against a live cluster through client-go
// typed clientsets.
type Client struct {
	clientset kubernetes.Interface
	namespace string
}

var _ ClusterClient = (*Client)(nil)

// NewClient loads the kubeconfig (default chain: $KUBECONFIG, then
// ~/.kube/config, then in-cluster) and builds a typed clientset.
func NewClient(namespace string) (*Client, error) {
	cfg, err := restConfig()
	if err != nil {
		return nil, fmt.Errorf("could not load Kubernetes configuration: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not build Kubernetes client: %w", err)
	}
	if namespace == "" {
		namespace = "default"
	}
	return &Client{clientset: clientset, namespace: namespace}, nil
}

// NewClientWith wraps an existing clientset; used by tests with a fake.
func NewClientWith(clientset kubernetes.Interface, namespace string) *Client {
	if namespace == "" {
		namespace = "default"
	}
	return &Client{clientset: clientset, namespace: namespace}
}

func restConfig() (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err == nil {
		return cfg, nil
	}
	// Fall back to in-cluster config when running inside a pod.
	if inCluster, icErr := rest.InClusterConfig(); icErr == nil {
		return inCluster, nil
	}
	return nil, err
}

// IsReachable reports whether the API server answers a version probe.
func (c *Client) IsReachable(ctx context.Context) bool {
	_, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		logger.Debug("Cluster not reachable", zap.Error(err))
		return false
	}
	return true
}
