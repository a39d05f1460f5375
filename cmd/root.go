package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kstack-dev/kstack/internal/utils/logger"
)

var (
	cfgFile        string
	namespace      string
	logLevel       string
	nonInteractive bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kstack",
	Short: "Convert compose-style stack files to Kubernetes resources",
	Long: `kstack translates a simplified, Docker-Compose-like stack file into
Kubernetes manifests (Deployments, Services, ConfigMaps, PVCs, Ingress) and
can apply or destroy them against the current cluster context.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", zap.Error(err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/kstack/kstack.yaml)")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "default", "target Kubernetes namespace")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&nonInteractive, "yes", "y", false, "non-interactive confirmations")

	// Bind flags to viper
	viper.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home + "/.config/kstack")
		viper.SetConfigType("yaml")
		viper.SetConfigName("kstack")
	}

	viper.SetEnvPrefix("KSTACK")
	viper.AutomaticEnv()

	if err := logger.Init(logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := viper.ReadInConfig(); err == nil {
		logger.Info("Using config file", zap.String("file", viper.ConfigFileUsed()))
	}
}
