package services

import (
	"context"
	"encoding/json"
	"fmt"

	"stock-scout/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockService handles communication with AWS Bedrock for Claude models.
// It is the alternate LLM backend, selected via LLM_BACKEND=bedrock.
type BedrockService struct {
	client    *bedrockruntime.Client
	model     string
	maxTokens int
}

// claudeRequest is the request format for Claude models via Bedrock
type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response from Claude models
type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewBedrockService creates a new BedrockService instance
func NewBedrockService(ctx context.Context, region, modelID string, maxTokens int) (*BedrockService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &BedrockService{
		client:    bedrockruntime.NewFromConfig(cfg),
		model:     modelID,
		maxTokens: maxTokens,
	}, nil
}

// InvokeWithPrompt sends a prompt to Claude and returns the response text
func (s *BedrockService) InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerBedrock, "invoke")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerBedrock, func() (string, error) {
		request := claudeRequest{
			AnthropicVersion: "bedrock-2023-05-31",
			MaxTokens:        s.maxTokens,
			System:           systemPrompt,
			Messages: []claudeMessage{
				{Role: "user", Content: userPrompt},
			},
		}

		reqBody, err := json.Marshal(request)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}

		output, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(s.model),
			Body:        reqBody,
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return "", fmt.Errorf("failed to invoke model: %w", err)
		}

		var response claudeResponse
		if err := json.Unmarshal(output.Body, &response); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}

		if len(response.Content) == 0 {
			return "", fmt.Errorf("empty response from model")
		}

		return response.Content[0].Text, nil
	})

	timer.ObserveExternalAPI(BreakerBedrock, "invoke")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerBedrock, "invoke", categorizeAPIError(err))
	}
	return result, err
}

// InvokeStructured sends a prompt and parses the JSON response into the provided struct
func (s *BedrockService) InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error {
	text, err := s.InvokeWithPrompt(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(text), result); err != nil {
		return fmt.Errorf("failed to parse response as JSON: %w", err)
	}

	return nil
}
