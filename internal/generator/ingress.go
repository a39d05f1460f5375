package generator

import (
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kstack-dev/kstack/internal/naming"
	"github.com/kstack-dev/kstack/internal/translator"
)

// generateIngress lowers the app's expose rules into one Ingress with a rule
// per exposed host, backed by the app's ClusterIP Service. Returns nil when
// the app exposes nothing.
func (g *KubeGenerator) generateIngress(app *translator.ResolvedApp) *networkingv1.Ingress {
	if len(app.Expose) == 0 {
		return nil
	}

	className := DefaultIngressClass
	pathType := networkingv1.PathTypePrefix

	var rules []networkingv1.IngressRule
	for _, rule := range app.Expose {
		if rule.IngressClassName != "" {
			className = rule.IngressClassName
		}
		port := rule.Port
		if port == 0 {
			port = 80
		}
		path := rule.Path
		if path == "" {
			path = "/"
		}

		rules = append(rules, networkingv1.IngressRule{
			Host: rule.Host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{
					Paths: []networkingv1.HTTPIngressPath{{
						Path:     path,
						PathType: &pathType,
						Backend: networkingv1.IngressBackend{
							Service: &networkingv1.IngressServiceBackend{
								Name: naming.Service(app.Name),
								Port: networkingv1.ServiceBackendPort{Number: int32(port)},
							},
						},
					}},
				},
			},
		})
	}

	return &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Ingress(app.Name),
			Namespace: g.namespace,
			Labels:    naming.Labels(app.Name),
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: &className,
			Rules:            rules,
		},
	}
}
