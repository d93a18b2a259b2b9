package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qdispatch/qdispatch/pkg/logging"
)

var (
	cfgFile      string
	registryPath string
	outputFormat string
	logLevel     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qdispatch",
	Short: "CLI for the qdispatch distributed circuit execution client",
	Long:  `qdispatch submits quantum circuits to deployed simulation workers, inspects the worker registry and browses the local execution history.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.qdispatch/config)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "worker registry file (default from config or ./workers.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".qdispatch"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("registry", "QDISPATCH_REGISTRY")
	viper.BindEnv("history_db", "QDISPATCH_HISTORY_DB")

	viper.ReadInConfig()

	if registryPath == "" {
		registryPath = viper.GetString("registry")
	}
	if registryPath == "" {
		registryPath = "workers.yaml"
	}
}

// GetRegistryPath returns the configured worker registry file
func GetRegistryPath() string {
	return registryPath
}

// GetHistoryDB returns the configured execution history database path
func GetHistoryDB() string {
	if db := viper.GetString("history_db"); db != "" {
		return db
	}
	return "executions.db"
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// NewLogger builds the logger configured by the global flags
func NewLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(logLevel), false)
}
