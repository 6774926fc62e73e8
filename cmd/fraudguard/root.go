package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fraudguard-io/fraudguard/logging"
)

// Default Pub/Sub topic ids the agent publishes to.
const (
	defaultAugmentedTopicID   = "fraud-example-augmented-transactions"
	defaultCompromisedTopicID = "fraud-example-compromised-cards"
)

// NewRootCmd creates the root fraudguard command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fraudguard",
		Short:         "FraudGuard — transaction fraud scoring agent",
		Long:          "FraudGuard scores credit card transactions for fraud with an LLM-backed agent,\npublishing augmented records and compromised-card alerts to Pub/Sub.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags — these map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("project", "", "GCP project id")
	root.PersistentFlags().String("location", "us-central1", "GCP region")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newScoreCmd(),
		newDeployCmd(),
		newDeleteCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	v.SetDefault("location", "us-central1")
	v.SetDefault("app_name", "fraud")
	v.SetDefault("user_id", "default")
	v.SetDefault("backend", "gemini")
	v.SetDefault("augmented_topic_id", defaultAugmentedTopicID)
	v.SetDefault("compromised_topic_id", defaultCompromisedTopicID)

	v.SetEnvPrefix("FRAUDGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("fraudguard")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/fraudguard")
		// No config file is fine — defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	for flagName, key := range map[string]string{
		"project":  "project",
		"location": "location",
		"verbose":  "verbose",
	} {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flagName)); err != nil {
			return fmt.Errorf("binding %s flag: %w", flagName, err)
		}
	}

	return nil
}

// newCLILogger builds the logger used by CLI commands, honoring --verbose.
func newCLILogger() *logging.FraudGuardLogger {
	level := logging.LogLevelInfo
	if viper.GetBool("verbose") {
		level = logging.LogLevelDebug
	}
	return logging.NewSlogLogger(level, "text", false)
}

// requireProject returns the configured project id or an error.
func requireProject() (string, error) {
	project := viper.GetString("project")
	if project == "" {
		return "", fmt.Errorf("a GCP project id is required (--project or FRAUDGUARD_PROJECT)")
	}
	return project, nil
}
