package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/template-synth/pkg/client"
	"github.com/menta2k/template-synth/pkg/types"
)

// DefaultTimeout applies when the caller's context has no deadline.
const DefaultTimeout = 300 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	return NewClientWithHTTP(ollamaURL, http.DefaultClient)
}

// NewClientWithHTTP creates a client that sends requests through httpClient.
func NewClientWithHTTP(ollamaURL string, httpClient *http.Client) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs a scheme and host", ollamaURL)
	}

	// Create base URL from the provided URL (removing path like /api/chat)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, httpClient)}, nil
}

// SimpleQuery performs a simple query with an image without expecting JSON
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.chat(ctx, model, prompt, imgB64, nil)
}

// Detect asks the model to locate the object in the image and parses its JSON reply.
func (c *Client) Detect(ctx context.Context, model, prompt, imgB64 string) (*types.Detection, error) {
	// Low temperature keeps the reply close to the requested JSON shape.
	options := map[string]any{
		"temperature": 0.1,
	}
	if strings.Contains(strings.ToLower(model), "minicpm-v") {
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}

	content, err := c.chat(ctx, model, prompt, imgB64, options)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return client.ParseDetection(content), nil
}

func (c *Client) chat(ctx context.Context, model, prompt, imgB64 string, options map[string]any) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	msg := api.Message{Role: "user", Content: prompt}
	if imgB64 != "" {
		imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
		if err != nil {
			return "", fmt.Errorf("failed to decode base64 image: %w", err)
		}
		msg.Images = []api.ImageData{api.ImageData(imgBytes)}
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{msg},
		Stream:   &streamFalse,
		Options:  options,
	}

	var responseContent strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return responseContent.String(), nil
}

var _ client.VisionClient = (*Client)(nil)
