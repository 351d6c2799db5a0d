package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultTimeout bounds a single provider call. A hung call past this is
	// abandoned, not interrupted, and the task is left to the watchdog.
	DefaultTimeout = 5 * time.Minute
)

var (
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set")
	ErrNoArtifact   = errors.New("provider returned no artifact")
)

// OpenAIProvider generates images via the OpenAI Images API. Edit is the
// reference-guided mode, Generate the text-only one.
type OpenAIProvider struct {
	client  openai.Client
	model   openai.ImageModel
	timeout time.Duration
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	m := openai.ImageModelGPTImage1
	if model != "" {
		m = openai.ImageModel(model)
	}

	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   m,
		timeout: DefaultTimeout,
	}, nil
}

func (p *OpenAIProvider) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, width, height *int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  p.model,
		Size:   openai.ImageGenerateParamsSize(sizeFor(width, height)),
	})
	if err != nil {
		return nil, fmt.Errorf("provider generate: %w", err)
	}

	return decodeArtifact(resp)
}

func (p *OpenAIProvider) Edit(ctx context.Context, prompt string, references [][]byte, width, height *int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	files := make([]io.Reader, 0, len(references))
	for i, ref := range references {
		name := fmt.Sprintf("reference-%d.png", i)
		files = append(files, openai.File(bytes.NewReader(ref), name, "image/png"))
	}

	resp, err := p.client.Images.Edit(ctx, openai.ImageEditParams{
		Image:  openai.ImageEditParamsImageUnion{OfFileArray: files},
		Prompt: prompt,
		Model:  p.model,
		Size:   openai.ImageEditParamsSize(sizeFor(width, height)),
	})
	if err != nil {
		return nil, fmt.Errorf("provider edit: %w", err)
	}

	return decodeArtifact(resp)
}

// sizeFor maps a requested target size to the closest supported provider
// size. Exact dimensions are restored by the artifact normalizer afterwards.
func sizeFor(width, height *int) string {
	if width == nil || height == nil {
		return "auto"
	}
	switch {
	case *width > *height:
		return "1536x1024"
	case *height > *width:
		return "1024x1536"
	default:
		return "1024x1024"
	}
}

func decodeArtifact(resp *openai.ImagesResponse) ([]byte, error) {
	if resp == nil || len(resp.Data) == 0 {
		return nil, ErrNoArtifact
	}

	b64 := resp.Data[0].B64JSON
	if b64 == "" {
		return nil, ErrNoArtifact
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	return data, nil
}
