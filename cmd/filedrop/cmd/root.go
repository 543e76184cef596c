package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "filedrop",
	Short:        "File upload server and client",
	Long:         "Serve a directory or bucket for browser and API uploads, or upload and list files on a running server.",
	SilenceUsage: true,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/filedrop/config.yaml)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "server base URL for client commands")

	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FILEDROP")
	viper.AutomaticEnv()
	viper.SetDefault("concurrency", 4)

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filedrop")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "filedrop")
	}
	return ".filedrop"
}

func serverURL() string {
	return viper.GetString("server")
}
