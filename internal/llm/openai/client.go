package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/promo-tracker/internal/llm"
)

// ExtractFields implements llm.FieldExtractor over chat/completions. Any error
// means the caller should fall back; nothing here retries the same model.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.PromoFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"models", c.cfg.Models,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"competitor", req.Competitor,
		"source", req.SourceKind,
	)

	schema := llm.BuildPromotionJSONSchema(req.AllowedCategories)
	sys := llm.BuildSystemPrompt(req)
	user := llm.BuildUserPrompt(req)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var raw []byte
	var model string
	var lastErr error
	for _, m := range c.cfg.Models {
		body := map[string]any{
			"model":       m,
			"temperature": c.cfg.Temperature,
			"messages": []map[string]any{
				{"role": "system", "content": sys},
				{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
				{"role": "user", "content": user + "\n\nReturn ONLY JSON that matches the provided schema."},
			},
		}
		if c.cfg.MaxTokens > 0 {
			body["max_tokens"] = c.cfg.MaxTokens
		}
		if c.cfg.JSONMode {
			body["response_format"] = map[string]any{"type": "json_object"}
		}

		var err error
		raw, _, err = llm.SendJSON(ctx, c.http, endpoint, body, map[string]string{
			"Authorization": "Bearer " + c.cfg.APIKey,
		}, c.log)
		if err == nil {
			model = m
			lastErr = nil
			break
		}
		lastErr = err
		if !isInvalidModel(err) {
			break
		}
		c.log.Warn("llm.extract.model_rejected", "req_id", rid, "model", m, "error", err)
	}
	if lastErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", lastErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PromoFields{}, nil, lastErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PromoFields{}, raw, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PromoFields{}, raw, errors.New("no choices in chat response")
	}
	content := llm.StripCodeFences(cc.Choices[0].Message.Content)

	cleaned, dropped, err := llm.NormalizeAndSanitizeJSON([]byte(content), c.log)
	if err != nil {
		c.log.Error("llm.extract.sanitize_failed",
			"req_id", rid, "error", err, "content", truncate(content, 2048),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PromoFields{}, []byte(content), fmt.Errorf("sanitize failed: %w", err)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "dropped", dropped, "content", truncate(content, 2048),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PromoFields{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.PromoFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PromoFields{}, cleaned, fmt.Errorf("unmarshal fields: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"model", model,
		"service", out.ServiceName,
		"discount", out.DiscountValue,
		"category", out.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

// isInvalidModel spots the provider's "unknown model" rejection.
func isInvalidModel(err error) bool {
	var se *llm.StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.Status != 400 && se.Status != 404 {
		return false
	}
	return bytes.Contains(bytes.ToLower(se.Body), []byte("model"))
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
