package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kstack-dev/kstack/internal/kube"
)

// getContextCmd represents the get-context command
var getContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Show the current kubeconfig context",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := kube.CurrentContext()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Context:\t%s\n", info.Context)
		fmt.Fprintf(w, "Cluster:\t%s\n", info.Cluster)
		fmt.Fprintf(w, "Server:\t%s\n", info.Server)
		fmt.Fprintf(w, "Namespace:\t%s\n", info.Namespace)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(getContextCmd)
}
