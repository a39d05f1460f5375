package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kstack-dev/kstack/internal/display"
	"github.com/kstack-dev/kstack/internal/translator"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

var convertOpts struct {
	file         string
	outputDir    string
	skipK8sCheck bool
}

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert -f <file>",
	Short: "Convert a stack file to Kubernetes manifests",
	Long: `Convert a stack file to Kubernetes manifests without changing the
cluster. Manifests are written to the output directory grouped by kind, or
printed to stdout when no directory is given.

External configs and secrets are looked up in the current cluster unless
--skip-k8s-check is given.

Examples:
  # Print manifests to stdout
  kstack convert -f stack.yaml --skip-k8s-check

  # Write manifests to ./k8s
  kstack convert -f stack.yaml -o ./k8s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, set, err := lowerStack(convertOpts.file)
		if err != nil {
			return err
		}

		if !convertOpts.skipK8sCheck {
			client, err := connectCluster(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := checkExternalResources(cmd.Context(), client, resolved); err != nil {
				return err
			}
		}

		if convertOpts.outputDir == "" {
			out, err := set.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}

		if err := set.WriteFiles(convertOpts.outputDir); err != nil {
			return err
		}
		logger.Info("Manifests written", zap.String("dir", convertOpts.outputDir))

		display.ManifestTable(set)
		display.ExternalResources(
			translator.ExternalConfigs(resolved),
			translator.ExternalSecrets(resolved.Stack))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convertOpts.file, "file", "f", "", "stack file to convert")
	convertCmd.Flags().StringVarP(&convertOpts.outputDir, "output-dir", "o", "", "output directory for manifests")
	convertCmd.Flags().BoolVar(&convertOpts.skipK8sCheck, "skip-k8s-check", false, "skip the cluster lookup of external configs and secrets")
}
