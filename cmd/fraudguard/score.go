package main

import (
	"encoding/json"
	"fmt"
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fraudguard-io/fraudguard/agent"
	"github.com/fraudguard-io/fraudguard/model"
	"github.com/fraudguard-io/fraudguard/model/anthropic"
	"github.com/fraudguard-io/fraudguard/model/gemini"
	"github.com/fraudguard-io/fraudguard/model/openai"
	"github.com/fraudguard-io/fraudguard/publish"
	"github.com/fraudguard-io/fraudguard/runner"
	"github.com/fraudguard-io/fraudguard/tool"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <transaction-json>",
		Short: "Score one transaction record for fraud",
		Long: "Score a credit card transaction record (a JSON object) for fraud.\n" +
			"The agent augments the record with fraud_likelihood and fraud_reason,\n" +
			"publishes it, and prints the augmented record. Pass '-' to read the\n" +
			"record from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	cmd.Flags().String("backend", "", "model backend: gemini, openai, anthropic or mock")
	cmd.Flags().String("model", "", "model id override for the chosen backend")
	cmd.Flags().String("user", "", "user id owning the scoring session")
	cmd.Flags().Bool("dry-run", false, "capture publishes in memory instead of Pub/Sub")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	record, err := readRecord(cmd, args[0])
	if err != nil {
		return err
	}
	if !json.Valid([]byte(record)) {
		return fmt.Errorf("transaction record is not valid JSON")
	}

	project, err := requireProject()
	if err != nil {
		return err
	}

	backend := viper.GetString("backend")
	if flagBackend, _ := cmd.Flags().GetString("backend"); flagBackend != "" {
		backend = flagBackend
	}

	userID := viper.GetString("user_id")
	if flagUser, _ := cmd.Flags().GetString("user"); flagUser != "" {
		userID = flagUser
	}

	logger := newCLILogger()

	llm, err := buildModel(cmd, backend)
	if err != nil {
		return err
	}

	augmentedTopic := publish.TopicPath(project, viper.GetString("augmented_topic_id"))
	compromisedTopic := publish.TopicPath(project, viper.GetString("compromised_topic_id"))

	var publisher publish.Publisher
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		publisher = publish.NewMemoryPublisher()
	} else {
		publisher = publish.NewGooglePublisher()
	}
	defer publisher.Close()

	instruction, err := agent.DetectorInstruction(augmentedTopic, compromisedTopic)
	if err != nil {
		return fmt.Errorf("building instruction: %w", err)
	}

	detector := agent.NewDetector(llm, func(o *agent.DetectorOptions) {
		o.Instruction = instruction
	})
	detector.RegisterTools(
		publish.NewPublishRecordTool(publisher, compromisedTopic),
		tool.NewSearchAlertHistoryTool(),
	)

	r := runner.New(viper.GetString("app_name"), detector, func(o *runner.Options) {
		o.Logger = logger
	})

	answer, err := r.Score(cmd.Context(), userID, record)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

// readRecord returns the record argument, or stdin contents when arg is "-".
func readRecord(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading record from stdin: %w", err)
	}
	return string(raw), nil
}

// buildModel constructs the model for the chosen backend.
func buildModel(cmd *cobra.Command, backend string) (model.Model, error) {
	modelID, _ := cmd.Flags().GetString("model")

	switch backend {
	case "gemini", "":
		return gemini.NewModel(cmd.Context(), func(o *gemini.Options) {
			if modelID != "" {
				o.Model = modelID
			}
		})
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if modelID != "" {
				o.Model = modelID
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if modelID != "" {
				o.Model = anthropicsdk.Model(modelID)
			}
		}), nil
	case "mock":
		return model.NewMockModel("mock-scorer", "mock"), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want gemini, openai, anthropic or mock)", backend)
	}
}
