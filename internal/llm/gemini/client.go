package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/llm"
	"github.com/joseph-ayodele/nominas/internal/nomina"
)

const DefaultModel = "gemini-2.0-flash"

// Config for the Gemini client.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	BaseURL     string // optional endpoint override
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client verifies pages with the Gemini API through the GenAI SDK.
type Client struct {
	cfg    Config
	client *genai.Client
	log    *slog.Logger
}

var _ llm.Verifier = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{cfg: cfg, client: client, log: logger}, nil
}

// Verify implements llm.Verifier. The rendered page goes as an inline image
// part; without an image the page text is part of the prompt.
func (c *Client) Verify(ctx context.Context, req llm.VerifyRequest) (nomina.Result, []byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()
	attach := len(req.Image) > 0

	c.log.Info("llm.verify.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"page", req.Page,
		"image_attached", attach,
	)

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: llm.BuildSystemPrompt()}},
		},
	}
	if c.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}

	parts := []*genai.Part{genai.NewPartFromText(llm.BuildUserPrompt(req, attach))}
	if attach {
		mt := req.MimeType
		if mt == "" {
			mt = http.DetectContentType(req.Image)
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mt))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		c.log.Error("llm.verify.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nomina.Result{}, nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	content := []byte(result.Text())
	out, cleaned, err := llm.DecodeVerified(content, c.log)
	if err != nil {
		c.log.Error("llm.verify.invalid_answer", "req_id", rid, "error", err, "content", string(content))
		return nomina.Result{}, content, err
	}

	c.log.Info("llm.verify.ok",
		"req_id", rid,
		"page", req.Page,
		"liquido", out.Totales.LiquidoAPercibir.String(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}
