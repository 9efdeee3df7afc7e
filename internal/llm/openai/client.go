package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/llm"
	"github.com/joseph-ayodele/nominas/internal/nomina"
)

var _ llm.Verifier = (*Client)(nil)

// Verify implements llm.Verifier using chat/completions. The rendered page is
// attached as a data URL when present; otherwise the page text is sent.
func (c *Client) Verify(ctx context.Context, req llm.VerifyRequest) (nomina.Result, []byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()
	attach := len(req.Image) > 0

	c.log.Info("llm.verify.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"page", req.Page,
		"image_attached", attach,
		"text_len", len(req.Text),
	)

	user := []map[string]any{
		{"type": "text", "text": llm.BuildUserPrompt(req, attach)},
	}
	if attach {
		user = append(user, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url":    llm.ImageDataURL(req.Image, req.MimeType),
				"detail": "high",
			},
		})
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": user},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.verify.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nomina.Result{}, nil, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.verify.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nomina.Result{}, raw, fmt.Errorf("%w: decode openai response: %w", llm.ErrInvalidResponse, err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.verify.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return nomina.Result{}, raw, fmt.Errorf("%w: no choices in openai response", llm.ErrInvalidResponse)
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	out, cleaned, err := llm.DecodeVerified(content, c.log)
	if err != nil {
		c.log.Error("llm.verify.invalid_answer",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nomina.Result{}, content, err
	}

	c.log.Info("llm.verify.ok",
		"req_id", rid,
		"page", req.Page,
		"devengos", len(out.DevengoItems),
		"deducciones", len(out.DeduccionItems),
		"aportaciones", len(out.AportacionEmpresaItems),
		"liquido", out.Totales.LiquidoAPercibir.String(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}
