// Package gemini provides a model wrapper for the Google Gemini API via the
// google.golang.org/genai SDK. It is the default backend: the scoring agent
// was designed around gemini-2.5-flash.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/model"
)

// DefaultModel is the Gemini model id used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Options configures the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int32
	APIKey          string
}

// Model wraps the Gemini GenerateContent API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Gemini model, dialing a client against the Gemini
// API backend. The API key falls back to the GEMINI_API_KEY / GOOGLE_API_KEY
// environment variables when unset.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:           DefaultModel,
		Temperature:     0.2,
		MaxOutputTokens: 8192,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:           DefaultModel,
		Temperature:     0.2,
		MaxOutputTokens: 8192,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements unified streaming / non-streaming generation. The SDK
// is always consumed as a stream; partial chunks are only surfaced to the
// caller when req.Stream is set.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents := buildContents(req.Contents)
		config := m.buildConfig(req)

		var textBuilder strings.Builder
		var callParts []core.Part
		var usage *model.TokenUsage
		finishReason := "stop"

		for result, err := range m.client.Models.GenerateContentStream(ctx, m.opts.Model, contents, config) {
			if err != nil {
				errCh <- fmt.Errorf("gemini api error: %w", err)
				return
			}

			for _, candidate := range result.Candidates {
				if candidate.FinishReason != "" {
					finishReason = strings.ToLower(string(candidate.FinishReason))
				}
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						textBuilder.WriteString(part.Text)
						if req.Stream {
							out <- model.Response{
								Partial: true,
								Content: core.Content{
									Role:  "assistant",
									Parts: []core.Part{core.TextPart{Text: part.Text}},
								},
							}
						}
					}
					if part.FunctionCall != nil {
						args, err := json.Marshal(part.FunctionCall.Args)
						if err != nil {
							errCh <- fmt.Errorf("gemini: marshaling tool call arguments for %q: %w", part.FunctionCall.Name, err)
							return
						}
						callParts = append(callParts, core.FunctionCallPart{
							FunctionCall: core.FunctionCall{
								ID:        part.FunctionCall.ID,
								Name:      part.FunctionCall.Name,
								Arguments: string(args),
							},
						})
					}
				}
			}

			if result.UsageMetadata != nil {
				usage = &model.TokenUsage{
					PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
				}
			}
		}

		finalParts := make([]core.Part, 0, len(callParts)+1)
		if textBuilder.Len() > 0 {
			finalParts = append(finalParts, core.TextPart{Text: textBuilder.String()})
		}
		finalParts = append(finalParts, callParts...)

		if len(callParts) > 0 {
			finishReason = "tool_calls"
		}

		out <- model.Response{
			Partial:      false,
			Content:      core.Content{Role: "assistant", Parts: finalParts},
			FinishReason: finishReason,
			Usage:        usage,
		}
	}()

	return out, errCh
}

// buildConfig assembles the generation config, carrying instructions as the
// system instruction and tool declarations as function declarations.
func (m *Model) buildConfig(req model.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(m.opts.Temperature)),
		MaxOutputTokens: m.opts.MaxOutputTokens,
	}

	if req.Instructions != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.Instructions}},
		}
	}

	if len(req.Tools) > 0 {
		var decls []*genai.FunctionDeclaration
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Function.Name,
				Description:          t.Function.Description,
				ParametersJsonSchema: t.Function.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}

// buildContents converts normalized contents into genai.Content values. The
// Gemini API uses role "model" for assistant turns, and function responses
// ride in user-role parts.
func buildContents(contents []core.Content) []*genai.Content {
	var result []*genai.Content

	for _, c := range contents {
		switch c.Role {
		case "system":
			// Handled via SystemInstruction.
			continue
		case "assistant":
			var parts []*genai.Part
			for _, p := range c.Parts {
				switch part := p.(type) {
				case core.TextPart:
					if part.Text != "" {
						parts = append(parts, &genai.Part{Text: part.Text})
					}
				case core.FunctionCallPart:
					var args map[string]any
					if part.FunctionCall.Arguments != "" {
						_ = json.Unmarshal([]byte(part.FunctionCall.Arguments), &args)
					}
					parts = append(parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{
							ID:   part.FunctionCall.ID,
							Name: part.FunctionCall.Name,
							Args: args,
						},
					})
				}
			}
			if len(parts) > 0 {
				result = append(result, &genai.Content{Role: "model", Parts: parts})
			}
		case "tool":
			var parts []*genai.Part
			for _, p := range c.Parts {
				fr, ok := p.(core.FunctionResponsePart)
				if !ok {
					continue
				}
				response := map[string]any{"result": fr.FunctionResponse.Response}
				if fr.FunctionResponse.Error != "" {
					response = map[string]any{"error": fr.FunctionResponse.Error}
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       fr.FunctionResponse.ID,
						Name:     fr.FunctionResponse.Name,
						Response: response,
					},
				})
			}
			if len(parts) > 0 {
				result = append(result, &genai.Content{Role: "user", Parts: parts})
			}
		default:
			// user and unknown roles
			var text strings.Builder
			for _, p := range c.Parts {
				if tp, ok := p.(core.TextPart); ok {
					text.WriteString(tp.Text)
				}
			}
			if text.Len() > 0 {
				result = append(result, &genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: text.String()}},
				})
			}
		}
	}

	return result
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
