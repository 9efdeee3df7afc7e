package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/llm"
	"github.com/joseph-ayodele/nominas/internal/llm/gemini"
	"github.com/joseph-ayodele/nominas/internal/llm/openai"
	"github.com/joseph-ayodele/nominas/internal/ocr"
	"github.com/joseph-ayodele/nominas/internal/pipeline"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

func (a *app) openRepository(ctx context.Context) (repository.PayslipRepository, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return repository.Open(ctx, a.cfg.Database, a.logger)
}

func (a *app) newVerifier(ctx context.Context) (llm.Verifier, error) {
	c := a.cfg.LLM
	switch c.Provider {
	case common.ProviderOpenAI, "":
		return openai.NewClient(openai.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
			Timeout:     c.Timeout,
		}, a.logger), nil
	case common.ProviderGemini:
		model := c.Model
		if strings.HasPrefix(model, "gpt-") {
			model = gemini.DefaultModel
		}
		v, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       model,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
			Timeout:     c.Timeout,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("llm provider %q: %w", c.Provider, common.ErrUnsupported)
}

// newProcessor wires extraction, storage and (when enabled) verification.
// The caller closes the returned repository.
func (a *app) newProcessor(ctx context.Context) (*pipeline.Processor, repository.PayslipRepository, error) {
	repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:        a.cfg.OCR.Pdftotext,
		Pdftoppm:         a.cfg.OCR.Pdftoppm,
		Tesseract:        a.cfg.OCR.Tesseract,
		TesseractLang:    a.cfg.OCR.TesseractLang,
		DPI:              a.cfg.OCR.DPI,
		MaxPages:         a.cfg.OCR.MaxPages,
		ArtifactCacheDir: a.cfg.OCR.ArtifactCacheDir,
	}, a.logger)

	opts := []pipeline.Option{
		pipeline.WithPageTimeout(a.cfg.Pipeline.PageTimeout),
		pipeline.WithCacheTTL(a.cfg.Pipeline.CacheTTL),
	}
	if a.cfg.Pipeline.Verify {
		v, err := a.newVerifier(ctx)
		if err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithVerifier(v))
	}
	return pipeline.NewProcessor(extractor, repo, a.logger, opts...), repo, nil
}

func (a *app) closeRepository(repo repository.PayslipRepository) {
	if err := repo.Close(); err != nil {
		a.logger.Warn("repository.close_failed", "error", err)
	}
}
