package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kstack-dev/kstack/internal/display"
)

var validateOpts struct {
	file         string
	skipK8sCheck bool
}

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate -f <file>",
	Short: "Validate a stack file without generating manifests",
	Long: `Validate runs the full parse, schema and reference checks on the stack
file and reports every problem found. Warnings do not fail the command.

External configs and secrets are looked up in the current cluster unless
--skip-k8s-check is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := compileStack(validateOpts.file)
		if err != nil {
			return err
		}

		if !validateOpts.skipK8sCheck {
			client, err := connectCluster(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := checkExternalResources(cmd.Context(), client, resolved); err != nil {
				return err
			}
		}

		display.Success("%s is valid", validateOpts.file)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateOpts.file, "file", "f", "", "stack file to validate")
	validateCmd.Flags().BoolVar(&validateOpts.skipK8sCheck, "skip-k8s-check", false, "skip the cluster lookup of external configs and secrets")
}
