package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kstack-dev/kstack/internal/display"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

var destroyOpts struct {
	file         string
	skipK8sCheck bool
	force        bool
}

// destroyCmd represents the destroy command
var destroyCmd = &cobra.Command{
	Use:   "destroy -f <file>",
	Short: "Delete the resources a stack file describes",
	Long: `Destroy compiles the stack file and deletes every resource it would
create, in reverse apply order (Ingress first, ConfigMaps and
PersistentVolumeClaims last). Resources that no longer exist are skipped.

External configs and secrets are never deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, set, err := lowerStack(destroyOpts.file)
		if err != nil {
			return err
		}
		if set.Empty() {
			fmt.Println("Nothing to delete.")
			return nil
		}

		display.ManifestTable(set)
		if !destroyOpts.force && !confirm(fmt.Sprintf("Delete these resources from namespace %q?", namespace)) {
			fmt.Println("Aborted.")
			return nil
		}

		client, err := connectCluster(ctx, destroyOpts.skipK8sCheck)
		if err != nil {
			return err
		}

		logger.Info("Destroying stack",
			zap.String("file", destroyOpts.file),
			zap.String("namespace", namespace))

		if err := client.Delete(ctx, set); err != nil {
			display.Failure("destroy failed: %v", err)
			return err
		}

		display.Success("stack removed from namespace %q", namespace)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
	destroyCmd.Flags().StringVarP(&destroyOpts.file, "file", "f", "", "stack file to destroy")
	destroyCmd.Flags().BoolVar(&destroyOpts.skipK8sCheck, "skip-k8s-check", false, "skip the cluster reachability check")
	destroyCmd.Flags().BoolVar(&destroyOpts.force, "force", false, "delete without asking for confirmation")
}
