package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
	"github.com/joseph-ayodele/bill-extractor/internal/llm"
)

// finishMaxTokens is Gemini's structured signal that the reply was cut off
// by the output-token limit. We surface it on the Reply instead of letting
// callers guess truncation from parse errors.
const finishMaxTokens = "MAX_TOKENS"

// Generate implements llm.VisionExtractor against the Gemini generateContent
// REST API. The document travels inline as base64; the reply text, token
// usage and finish reason come back on llm.Reply.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Reply, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("gemini.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"mime_type", req.MimeType,
		"document_bytes", len(req.Document),
		"prompt_len", len(req.Prompt),
	)

	parts := []map[string]any{
		{"text": req.Prompt},
	}
	if len(req.Document) > 0 {
		parts = append(parts, map[string]any{
			"inline_data": map[string]any{
				"mime_type": req.MimeType,
				"data":      base64.StdEncoding.EncodeToString(req.Document),
			},
		})
	}

	body := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]any{{"text": llm.SystemPrompt}},
		},
		"contents": []map[string]any{
			{"parts": parts},
		},
		"generationConfig": map[string]any{
			"temperature":     c.cfg.Temperature,
			"maxOutputTokens": c.cfg.MaxTokens,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("gemini.generate.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Reply{}, err
	}

	var gr struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.logger.Error("gemini.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Reply{}, fmt.Errorf("decode gemini response: %w", err)
	}

	usage := entity.TokenUsage{
		InputTokens:  gr.UsageMetadata.PromptTokenCount,
		OutputTokens: gr.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  gr.UsageMetadata.TotalTokenCount,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	if len(gr.Candidates) == 0 {
		c.logger.Error("gemini.generate.no_candidates",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		// Tokens were still charged for the prompt; report them.
		return llm.Reply{Usage: usage}, fmt.Errorf("no candidates in gemini response")
	}

	candidate := gr.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	reply := llm.Reply{
		Text:      text.String(),
		Usage:     usage,
		Truncated: candidate.FinishReason == finishMaxTokens,
	}

	c.logger.Info("gemini.generate.ok",
		"req_id", rid,
		"finish_reason", candidate.FinishReason,
		"truncated", reply.Truncated,
		"reply_len", len(reply.Text),
		"total_tokens", usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("gemini response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
