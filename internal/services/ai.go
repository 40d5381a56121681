package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CompletionClient is the text-completion collaborator the summary
// orchestrator depends on: one prompt in, raw text out.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	completionTimeout   = 30 * time.Second
	completionRetries   = 2 // transport-level only; logic failures are never retried
	completionMaxTokens = 300
	completionTemp      = 0.2
)

// GeminiClient implements CompletionClient against the Gemini API, tuned
// near-deterministic and constrained to JSON output.
type GeminiClient struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // concurrency slots
}

func NewGeminiClient(apiKey, modelName string, concurrentReqs int) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(completionTemp)
	model.SetMaxOutputTokens(completionMaxTokens)
	model.ResponseMIMEType = "application/json"

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiClient{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (c *GeminiClient) Close() {
	c.client.Close()
}

func (c *GeminiClient) acquireSlot(ctx context.Context) error {
	select {
	case <-c.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini slot")
	}
}

func (c *GeminiClient) releaseSlot() {
	c.rateChan <- struct{}{}
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.acquireSlot(ctx); err != nil {
		return "", err
	}
	defer c.releaseSlot()

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt <= completionRetries; attempt++ {
		resp, err = c.model.GenerateContent(ctx, genai.Text(prompt))
		if err == nil || !isTransient(err) {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return extractText(resp), nil
}

// isTransient reports whether a provider failure is worth one more
// transport attempt. Auth and quota errors are not.
func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Internal:
			return true
		}
	}
	return false
}

// ClassifyProviderError maps a completion failure onto the user-facing
// taxonomy: auth misconfiguration and provider-side throttling get
// distinct messages, everything else is generic.
func ClassifyProviderError(err error) *GenerationError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return &GenerationError{Message: "Invalid API key configuration"}
		case 429:
			return &GenerationError{Message: "AI provider rate limit exceeded. Please try again later."}
		}
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return &GenerationError{Message: "Invalid API key configuration"}
		case codes.ResourceExhausted:
			return &GenerationError{Message: "AI provider rate limit exceeded. Please try again later."}
		}
	}
	return &GenerationError{Message: "Failed to generate summary"}
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
