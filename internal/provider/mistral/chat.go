package mistral

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/novaocr/novaocr/internal/provider"
)

const opLLMClean = "llm.clean"

const pageBreakMarker = "---PAGE BREAK---"

// CleanBatch implements provider.LLMClient against POST /v1/chat/completions.
// The batch goes out as numbered page blocks; the model must answer with a
// JSON object {"pages": [...]} carrying exactly one cleaned text per input.
// The response is validated against a JSON schema before use; an arity
// mismatch is a malformed (non-retryable) failure.
func (c *Client) CleanBatch(ctx context.Context, texts []string, systemPrompt string, temperature float64) ([]string, error) {
	if len(texts) == 0 {
		return nil, provider.NewServiceError(provider.KindMalformed, opLLMClean, 0,
			fmt.Errorf("empty batch"))
	}

	start := time.Now()
	schema := BuildCleanupJSONSchema(len(texts))

	body := map[string]any{
		"model":           c.cfg.LLMModel,
		"temperature":     temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildCleanupPrompt(texts)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	raw, err := c.postJSON(ctx, opLLMClean, c.cfg.BaseURL+"/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, provider.NewServiceError(provider.KindMalformed, opLLMClean, 0,
			fmt.Errorf("decode chat response: %w", err))
	}
	if len(cc.Choices) == 0 {
		return nil, provider.NewServiceError(provider.KindMalformed, opLLMClean, 0,
			fmt.Errorf("no choices in chat response"))
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	if err := ValidateJSONAgainstSchema(schema, []byte(content)); err != nil {
		c.logger.Error("mistral.clean.schema_validation_failed",
			"error", err,
			"content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, provider.NewServiceError(provider.KindMalformed, opLLMClean, 0,
			fmt.Errorf("schema validation failed: %w", err))
	}

	var out struct {
		Pages []string `json:"pages"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, provider.NewServiceError(provider.KindMalformed, opLLMClean, 0,
			fmt.Errorf("unmarshal pages: %w", err))
	}
	if len(out.Pages) != len(texts) {
		return nil, provider.NewServiceError(provider.KindMalformed, opLLMClean, 0,
			fmt.Errorf("arity mismatch: sent %d pages, got %d back", len(texts), len(out.Pages)))
	}

	c.logger.Info("mistral.clean.ok",
		"pages", len(out.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Pages, nil
}

func buildCleanupPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString("Clean the OCR text of the following pages. ")
	fmt.Fprintf(&b, "Return ONLY JSON of the form {\"pages\": [...]} with exactly %d entries, ", len(texts))
	b.WriteString("one cleaned text per page, in the same order.\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "\n%s\nPage %d:\n%s\n", pageBreakMarker, i+1, t)
	}
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
