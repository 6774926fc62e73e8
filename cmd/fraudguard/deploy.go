package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fraudguard-io/fraudguard/engine"
)

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the fraud agent to the reasoning engine",
		Long: "Deploy the fraud agent as a managed reasoning engine instance in the\n" +
			"configured project and location.",
		Args: cobra.NoArgs,
		RunE: runDeploy,
	}

	cmd.Flags().String("display-name", "Fraud Agent", "display name of the deployed agent")
	cmd.Flags().String("access-token", "", "bearer token for the engine API (FRAUDGUARD_ACCESS_TOKEN)")

	return cmd
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	project, err := requireProject()
	if err != nil {
		return err
	}

	client, err := newEngineClient(cmd, project)
	if err != nil {
		return err
	}

	displayName, _ := cmd.Flags().GetString("display-name")

	fmt.Fprintf(cmd.OutOrStdout(), "--- Deploying Fraud Agent ---\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Project ID: %s\n", project)
	fmt.Fprintf(cmd.OutOrStdout(), "Region: %s\n", viper.GetString("location"))

	created, err := client.Create(cmd.Context(), engine.CreateRequest{
		DisplayName: displayName,
		Description: "Determines risk of fraud in transactions.",
	})
	if err != nil {
		return fmt.Errorf("deploying agent: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Remote agent created successfully: %s (%s)\n", created.DisplayName, created.Name)
	return nil
}

// newEngineClient builds the engine client from CLI configuration.
func newEngineClient(cmd *cobra.Command, project string) (*engine.Client, error) {
	token, _ := cmd.Flags().GetString("access-token")
	if token == "" {
		token = viper.GetString("access_token")
	}
	if token == "" {
		return nil, fmt.Errorf("an access token is required (--access-token or FRAUDGUARD_ACCESS_TOKEN)")
	}

	logger := newCLILogger()

	return engine.NewClient(project, viper.GetString("location"), engine.StaticToken(token), func(o *engine.Options) {
		o.Logger = logger
	}), nil
}
