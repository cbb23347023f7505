package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/bag"
)

var rootCmd = &cobra.Command{
	Use:   "bag",
	Short: "Checksum-manifested storage packages",
	Long:  "CLI for creating, mutating, and verifying checksum-manifested storage packages.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/bag/config.yaml)")
	rootCmd.PersistentFlags().StringSlice("algorithm", nil, "checksum algorithms (default: sha256)")
	rootCmd.PersistentFlags().Int("jobs", 0, "parallel digest workers")

	viper.BindPFlag("algorithms", rootCmd.PersistentFlags().Lookup("algorithm"))
	viper.BindPFlag("jobs", rootCmd.PersistentFlags().Lookup("jobs"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BAG")
	viper.AutomaticEnv()
	viper.SetDefault("algorithms", []string{"sha256"})
	viper.SetDefault("jobs", bag.DefaultConcurrency)

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bag")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "bag")
	}
	return ".bag"
}

// configuredOptions builds the option set shared by every subcommand.
func configuredOptions() ([]bag.Option, error) {
	var algorithms []bag.Algorithm
	for _, name := range viper.GetStringSlice("algorithms") {
		a, err := bag.ParseAlgorithm(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		algorithms = append(algorithms, a)
	}
	return []bag.Option{
		bag.WithAlgorithms(algorithms...),
		bag.WithConcurrency(viper.GetInt("jobs")),
	}, nil
}
