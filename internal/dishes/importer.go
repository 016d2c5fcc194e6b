package dishes

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"ai-menu-builder/internal/llm"
	"ai-menu-builder/internal/shared"
)

//go:embed import_prompt.md
var importPromptTemplate string

const importSystemPrompt = `You are a recipe extraction expert. You always answer with a single valid JSON object and nothing else.`

// maxPageChars caps how much page text goes into the prompt.
const maxPageChars = 20000

type extractedDish struct {
	Title        string    `json:"title"`
	Ingredients  []string  `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Tags         []string  `json:"tags"`
	Servings     string    `json:"servings"`
	Nutrition    Nutrition `json:"nutrition"`
}

// ImportResult is one imported dish with the extraction metering.
type ImportResult struct {
	Dish *Dish
	Meta shared.AgentMeta
}

// Importer fetches a recipe page and extracts a structured dish from
// it.
type Importer struct {
	textGen    llm.TextGenerator
	httpClient *http.Client
	tmpl       *template.Template
}

func NewImporter(textGen llm.TextGenerator, httpClient *http.Client) *Importer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Importer{
		textGen:    textGen,
		httpClient: httpClient,
		tmpl:       template.Must(template.New("import_prompt").Parse(importPromptTemplate)),
	}
}

// ImportFromURL fetches the URL, strips page noise, and asks the model
// for the structured dish.
func (i *Importer) ImportFromURL(ctx context.Context, url string) (ImportResult, error) {
	content, err := i.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	dish, meta, err := i.extract(ctx, content)
	if err != nil {
		return ImportResult{Meta: meta}, err
	}
	dish.SourceURL = url
	return ImportResult{Dish: dish, Meta: meta}, nil
}

// ImportFromText extracts a dish from already-fetched text, for
// callers that paste a recipe instead of linking one.
func (i *Importer) ImportFromText(ctx context.Context, text string) (ImportResult, error) {
	dish, meta, err := i.extract(ctx, text)
	if err != nil {
		return ImportResult{Meta: meta}, err
	}
	return ImportResult{Dish: dish, Meta: meta}, nil
}

func (i *Importer) extract(ctx context.Context, content string) (*Dish, shared.AgentMeta, error) {
	if len(content) > maxPageChars {
		content = content[:maxPageChars]
	}
	var sb strings.Builder
	if err := i.tmpl.Execute(&sb, struct{ Content string }{Content: content}); err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to build import prompt: %w", err)
	}

	start := time.Now()
	resp, err := i.textGen.GenerateContent(ctx, importSystemPrompt, sb.String())
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("dish extraction failed: %w", err)
	}
	meta := shared.AgentMeta{
		AgentName: "DishImporter",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	var extracted extractedDish
	if err := llm.DecodeJSON(resp.Content, &extracted); err != nil {
		return nil, meta, fmt.Errorf("failed to unmarshal LLM response: %w. Response: %s", err, resp.Content)
	}
	if extracted.Title == "" {
		return nil, meta, fmt.Errorf("no dish found in response: %s", resp.Content)
	}

	return &Dish{
		ID:           uuid.NewString(),
		Title:        extracted.Title,
		Ingredients:  extracted.Ingredients,
		Instructions: extracted.Instructions,
		Tags:         extracted.Tags,
		Servings:     extracted.Servings,
		Nutrition:    extracted.Nutrition,
		CreatedAt:    time.Now().UTC(),
	}, meta, nil
}

func (i *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return strings.TrimSpace(doc.Find("body").Text()), nil
}
