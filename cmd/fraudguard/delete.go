package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <agent-short-id>",
		Short: "Delete a deployed fraud agent",
		Long: "Delete a deployed agent by its short id (the trailing numeric segment of\n" +
			"the resource name), forcing deletion of child resources such as sessions.",
		Args: cobra.ExactArgs(1),
		RunE: runDelete,
	}

	cmd.Flags().String("access-token", "", "bearer token for the engine API (FRAUDGUARD_ACCESS_TOKEN)")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	shortID := args[0]

	project, err := requireProject()
	if err != nil {
		return err
	}

	client, err := newEngineClient(cmd, project)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Searching for agent by short ID %s...\n", shortID)

	target, err := client.FindByShortID(cmd.Context(), shortID)
	if err != nil {
		return fmt.Errorf("searching for agent: %w", err)
	}
	if target == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Agent with short ID %q not found. Nothing to delete.\n", shortID)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Found agent: %s. Deleting resource...\n", target.Name)

	if err := client.Delete(cmd.Context(), target.Name, true); err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Agent %q and all associated resources deleted successfully.\n", target.Name)
	return nil
}
