// Package gemini provides a Vertex AI Gemini backend for document-to-markdown
// conversion, as an alternative to the hosted Mistral OCR endpoint.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

const parserSystemPrompt = "You are a document parser and markdown translator. Your task is to parse the content of a PDF document and translate it into markdown format. Accuracy, detail, and information preservation are of utmost importance."

const parserUserPrompt = `You will be provided with a PDF document.

Follow these instructions to parse the document and translate its content into markdown format:

Text: Parse all text content directly into markdown text.
Lists: Parse all lists into markdown lists, maintaining the original structure and formatting.
Images: Replace each image with a descriptive text that accurately describes the image's content.
Tables: Parse all tables into markdown tables, preserving as much information as possible.
Headers and Footers: Ignore irrelevant header and footer content such as page numbers or publisher logos.

Return ONLY the markdown content. Do not surround the output with backtick fences.`

// refusalPhrases mark responses where the model declined to process the
// document; these must fail the item rather than be stored as output.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// Client converts PDF documents to markdown through a pre-configured Gemini
// model. Safe for concurrent use; the genai client multiplexes requests.
type Client struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

// NewClient creates a Client for the given project and region.
func NewClient(ctx context.Context, projectID, region string) (*Client, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("gemini: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("gemini: genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel("gemini-1.5-pro")
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(parserSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &Client{model: model, baseClient: baseClient}, nil
}

// Name identifies the backend in provider selection and progress output.
func (c *Client) Name() string { return "gemini" }

// OCR submits the document inline and returns the extracted markdown. Gemini
// does not return an image set, so Images is always empty.
func (c *Client) OCR(ctx context.Context, name string, data []byte) (*pipeline.Extraction, error) {
	filePart := genai.Blob{MIMEType: "application/pdf", Data: data}
	prompt := genai.Text(parserUserPrompt)

	resp, err := c.model.GenerateContent(ctx, filePart, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content for %s: %w", name, err)
	}

	markdown := extractMarkdown(resp)
	lower := strings.ToLower(markdown)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return nil, fmt.Errorf("gemini: response for %s indicates refusal", name)
		}
	}

	// Rough page count from horizontal-rule separators, same heuristic the
	// progress output uses for locally produced markdown.
	pages := 0
	if markdown != "" {
		pages = strings.Count(markdown, "\n---\n") + 1
	}

	return &pipeline.Extraction{
		Markdown: markdown,
		Pages:    pages,
	}, nil
}

// Close releases the underlying genai client.
func (c *Client) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// extractMarkdown concatenates the text parts of the first candidate and
// strips any fence the model wrapped the output in.
func extractMarkdown(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	content := strings.TrimSpace(sb.String())
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
