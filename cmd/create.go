package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kstack-dev/kstack/internal/display"
	"github.com/kstack-dev/kstack/internal/kube"
)

var createOpts struct {
	envFile      string
	literals     []string
	skipK8sCheck bool
	dryRun       bool
}

func sortedKeys[V any](data map[string]V) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// createCmd groups the resource creation subcommands
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create standalone cluster resources",
}

var createSecretCmd = &cobra.Command{
	Use:   "secret <name>",
	Short: "Create or update a Secret from literals or an env file",
	Long: `Create a Kubernetes Secret in the target namespace from --from-literal
pairs and/or a --from-env-file. Existing secrets are updated in place.

Examples:
  kstack create secret db-credentials --from-literal=USER=app --from-literal=PASS=s3cret
  kstack create secret db-credentials --from-env-file=.env`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		data, err := kube.SecretDataFromSources(createOpts.envFile, createOpts.literals)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("no data given; use --from-literal or --from-env-file")
		}

		if createOpts.dryRun {
			fmt.Printf("would configure secret %q with keys: %s\n", name, strings.Join(sortedKeys(data), ", "))
			return nil
		}

		client, err := connectCluster(ctx, createOpts.skipK8sCheck)
		if err != nil {
			return err
		}

		if err := client.ApplySecret(ctx, name, data); err != nil {
			return err
		}
		display.Success("secret %q configured in namespace %q", name, namespace)
		return nil
	},
}

var createConfigCmd = &cobra.Command{
	Use:   "config <name>",
	Short: "Create or update a ConfigMap from literals or an env file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		data, err := kube.ConfigDataFromSources(createOpts.envFile, createOpts.literals)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("no data given; use --from-literal or --from-env-file")
		}

		if createOpts.dryRun {
			fmt.Printf("would configure config %q with keys: %s\n", name, strings.Join(sortedKeys(data), ", "))
			return nil
		}

		client, err := connectCluster(ctx, createOpts.skipK8sCheck)
		if err != nil {
			return err
		}

		if err := client.ApplyConfigMap(ctx, name, data); err != nil {
			return err
		}
		display.Success("config %q configured in namespace %q", name, namespace)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.AddCommand(createSecretCmd)
	createCmd.AddCommand(createConfigCmd)

	createCmd.PersistentFlags().StringVar(&createOpts.envFile, "from-env-file", "", "read KEY=VALUE pairs from a file")
	createCmd.PersistentFlags().StringArrayVar(&createOpts.literals, "from-literal", nil, "KEY=VALUE pair (repeatable)")
	createCmd.PersistentFlags().BoolVar(&createOpts.skipK8sCheck, "skip-k8s-check", false, "skip the cluster reachability check")
	createCmd.PersistentFlags().BoolVar(&createOpts.dryRun, "dry-run", false, "print what would be created without touching the cluster")
}
