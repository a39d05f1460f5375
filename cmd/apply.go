package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kstack-dev/kstack/internal/display"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

var applyOpts struct {
	file         string
	skipK8sCheck bool
	dryRun       bool
}

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply -f <file>",
	Short: "Apply a stack file to the cluster",
	Long: `Apply compiles the stack file into Kubernetes manifests and applies
them to the current cluster context. Resources are created when missing and
patched when they already exist.

Resources are applied in dependency order: ConfigMaps and
PersistentVolumeClaims first, then Services, then Deployments, then Ingress.
Resources within a stage are applied concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resolved, set, err := lowerStack(applyOpts.file)
		if err != nil {
			return err
		}

		if applyOpts.dryRun {
			out, err := set.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}

		client, err := connectCluster(ctx, applyOpts.skipK8sCheck)
		if err != nil {
			return err
		}

		if err := checkExternalResources(ctx, client, resolved); err != nil {
			return err
		}

		logger.Info("Applying stack",
			zap.String("file", applyOpts.file),
			zap.String("namespace", namespace))

		if err := client.Apply(ctx, set); err != nil {
			display.Failure("apply failed: %v", err)
			return err
		}

		display.ManifestTable(set)
		display.Success("stack applied to namespace %q", namespace)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVarP(&applyOpts.file, "file", "f", "", "stack file to apply")
	applyCmd.Flags().BoolVar(&applyOpts.skipK8sCheck, "skip-k8s-check", false, "skip the cluster reachability check")
	applyCmd.Flags().BoolVar(&applyOpts.dryRun, "dry-run", false, "print the manifests without touching the cluster")
}
