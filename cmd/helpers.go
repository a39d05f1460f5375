package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kstack-dev/kstack/internal/display"
	"github.com/kstack-dev/kstack/internal/generator"
	"github.com/kstack-dev/kstack/internal/kube"
	"github.com/kstack-dev/kstack/internal/translator"
)

// errStackInvalid signals that errors were already printed; the command just
// needs a non-zero exit.
var errStackInvalid = fmt.Errorf("stack file is not valid")

// compileStack runs parse → validate → resolve and prints every collected
// error and warning. Returns the resolved graph only when the file is clean.
func compileStack(file string) (*translator.ResolvedStack, error) {
	if file == "" {
		return nil, fmt.Errorf("stack file is required. Use -f to specify a file")
	}

	resolved, errs, err := translator.NewStackTranslator().TranslateFromFile(file)
	if err != nil {
		return nil, err
	}
	if errs != nil {
		display.Errors(errs)
	}
	if resolved == nil {
		return nil, errStackInvalid
	}
	return resolved, nil
}

// lowerStack compiles the file and lowers it into a manifest set.
func lowerStack(file string) (*translator.ResolvedStack, *generator.ManifestSet, error) {
	resolved, err := compileStack(file)
	if err != nil {
		return nil, nil, err
	}
	set, err := generator.NewKubeGenerator(namespace).Generate(resolved)
	if err != nil {
		return nil, nil, err
	}
	return resolved, set, nil
}

// connectCluster builds the cluster client and, unless skipped, verifies it
// answers before any resource is touched.
func connectCluster(ctx context.Context, skipCheck bool) (*kube.Client, error) {
	client, err := kube.NewClient(namespace)
	if err != nil {
		return nil, err
	}
	if !skipCheck && !client.IsReachable(ctx) {
		return nil, fmt.Errorf("could not reach the Kubernetes cluster; use --skip-k8s-check to bypass")
	}
	return client, nil
}

// checkExternalResources verifies referenced external configs and secrets
// exist in the cluster.
func checkExternalResources(ctx context.Context, client *kube.Client, resolved *translator.ResolvedStack) error {
	configs := translator.ExternalConfigs(resolved)
	secrets := translator.ExternalSecrets(resolved.Stack)
	if len(configs) == 0 && len(secrets) == 0 {
		return nil
	}
	return client.EnsureExternalResources(ctx, configs, secrets)
}

// confirm asks the user before destructive operations unless -y was given.
func confirm(prompt string) bool {
	if nonInteractive {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
