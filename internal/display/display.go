package display

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/kstack-dev/kstack/internal/generator"
	"github.com/kstack-dev/kstack/internal/translator"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

// ManifestTable prints a summary of the lowered manifest set.
func ManifestTable(set *generator.ManifestSet) {
	bold.Fprintln(os.Stdout, "NAMESPACE RESOURCES")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME")
	for _, cm := range set.ConfigMaps {
		fmt.Fprintf(w, "ConfigMap\t%s\n", cm.Name)
	}
	for _, pvc := range set.PVCs {
		fmt.Fprintf(w, "PersistentVolumeClaim\t%s\n", pvc.Name)
	}
	for _, svc := range set.Services {
		fmt.Fprintf(w, "Service\t%s\n", svc.Name)
	}
	for _, dep := range set.Deployments {
		fmt.Fprintf(w, "Deployment\t%s\n", dep.Name)
	}
	for _, ing := range set.Ingresses {
		fmt.Fprintf(w, "Ingress\t%s\n", ing.Name)
	}
	w.Flush()
}

// ExternalResources lists external configs and secrets the cluster must
// already provide.
func ExternalResources(configs, secrets []string) {
	if len(configs) == 0 && len(secrets) == 0 {
		return
	}
	bold.Fprintln(os.Stdout, "\nEXTERNAL RESOURCES (must exist in the cluster)")
	for _, name := range configs {
		fmt.Printf("  ConfigMap  %s\n", name)
	}
	for _, name := range secrets {
		fmt.Printf("  Secret     %s\n", name)
	}
}

// Errors prints every collected error to stderr, warnings in yellow.
func Errors(errs *translator.ErrorList) {
	for _, err := range errs.Errors() {
		if re, ok := err.(*translator.ReferenceError); ok && re.Severity == translator.SeverityWarning {
			yellow.Fprintln(os.Stderr, err.Error())
			continue
		}
		red.Fprintln(os.Stderr, err.Error())
	}
}

// Success prints a green confirmation line.
func Success(format string, args ...interface{}) {
	green.Fprintf(os.Stdout, "✓ "+format+"\n", args...)
}

// Failure prints a red failure line.
func Failure(format string, args ...interface{}) {
	red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}
