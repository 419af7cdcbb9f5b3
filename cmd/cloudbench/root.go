package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
	"github.com/cloudbench-project/cloudbench/pkg/install"
)

// Config is the on-disk shape of a cloudbench system description.
type Config struct {
	System    cluster.System          `mapstructure:"system"`
	EnvVars   map[string]string       `mapstructure:"env_vars"`
	Workloads map[string]install.Args `mapstructure:"workloads"`
}

func NewRootCmd() *cobra.Command {
	var configPath string
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "cloudbench",
		Short:        "Manage installation state of benchmark artifacts on a compute cluster",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return errors.Wrapf(err, "failed to load env file %s", envFile)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cloudbench.yaml", "path to the system config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional dotenv file loaded before running")

	rootCmd.AddCommand(newStatusCmd(&configPath))
	rootCmd.AddCommand(newInstallCmd(&configPath))
	rootCmd.AddCommand(newUninstallCmd(&configPath))
	return rootCmd
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.System.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildStrategy(configPath, workload string) (install.Strategy, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	args := cfg.Workloads[strings.ToLower(workload)]
	return install.NewStrategy(workload, &cfg.System, cfg.EnvVars, args)
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status [workload]",
		Short: "Report whether a workload's artifacts are installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := buildStrategy(*configPath, args[0])
			if err != nil {
				return err
			}
			return report(cmd, strategy.IsInstalled(cmd.Context()), "installed")
		},
	}
}

func newInstallCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "install [workload]",
		Short: "Install a workload's artifacts into the shared cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := buildStrategy(*configPath, args[0])
			if err != nil {
				return err
			}
			log.Ctx(cmd.Context()).Info().Str("workload", args[0]).Msg("installing workload artifacts")
			return report(cmd, strategy.Install(cmd.Context()), "install succeeded")
		},
	}
}

func newUninstallCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [workload]",
		Short: "Remove a workload's cached artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := buildStrategy(*configPath, args[0])
			if err != nil {
				return err
			}
			return report(cmd, strategy.Uninstall(cmd.Context()), "uninstall succeeded")
		},
	}
}

func report(cmd *cobra.Command, result install.InstallStatusResult, okWord string) error {
	if result.Success {
		if result.Message != "" {
			cmd.Println(result.Message)
		} else {
			cmd.Println(okWord)
		}
		return nil
	}
	return fmt.Errorf("%s", result.Message)
}
