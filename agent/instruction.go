package agent

import (
	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from session state, environment, etc.
type Provider interface {
	Instruction(*core.RunContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.RunContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx *core.RunContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx)
	}
	return i.text, nil
}

const detectorInstructionTemplate = `You are an expert agent at detecting fraud in financial transactions. You will be given JSON records
for credit card transactions where you are trying to determine the likelihood of fraud. Possible indicators of fraud:
- A sequence of transactions for the same credit card using IP addresses from different countries.
- A sequence of transactions where the first is a small amount of money to a charity and then a large amount of money to a store.
- A credit card that already appears in the alert history (use "search_alert_history" to check).
- Anything else you can find as an expert in fraud detection.

For each transaction:
1. Evaluate the likelihood of it being a fraudulent transaction and give it a score between 0.0 and 1.0.
2. Augment the input with two new fields: 'fraud_likelihood' set to this result of this evaluation and 'fraud_reason' with a short description of the reason for the fraud likelihood.
3. Use "publish_record" to publish this augmented JSON object to the topic {{.augmented_topic}}
4. If the evaluation of fraud from step 1 is > 0.7, use "publish_record" to publish a JSON object containing the timestamp, credit card number, fraud likelihood, and fraud reason to the topic {{.compromised_topic}}.
5. Return the augmented input from step #3.

Sample input: {"credit_card_number": "1234567812345678", "receiver": "Macy's", "amount": 100.05, "ip_address": "68.45.25.58", "timestamp":"2025-09-18T11:47:02.814"}
Sample output: {"credit_card_number": "1234567812345678", "receiver": "Macy's", "amount": 100.05, "ip_address": "68.45.25.58", "timestamp":"2025-09-18T11:47:02.814", "fraud_likelihood": 0.8, "fraud_reason": "Multiple transactions from different countries"}`

// DetectorInstruction renders the fraud scoring instruction with the concrete
// topic paths the detector publishes to.
func DetectorInstruction(augmentedTopic, compromisedTopic string) (Instruction, error) {
	text, err := util.RenderTemplate(detectorInstructionTemplate, map[string]any{
		"augmented_topic":   augmentedTopic,
		"compromised_topic": compromisedTopic,
	})
	if err != nil {
		return Instruction{}, err
	}
	return NewInstructionFromText(text), nil
}
