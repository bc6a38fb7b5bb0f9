package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/gridwire/gridwire/internal/cache"
	"github.com/gridwire/gridwire/internal/filter"
	"github.com/gridwire/gridwire/internal/model"
)

// Classification labels
const (
	LabelNFL       = "NFL"
	LabelNonNFL    = "NON_NFL"
	LabelAmbiguous = "AMBIGUOUS"
)

// Classification is the verdict for one headline
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Config holds classifier configuration
type Config struct {
	// Model name (e.g. gpt-4o-mini)
	Model string

	// APIKey enables the OpenAI backend; empty means heuristic-only
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// CacheTTL for classification results
	CacheTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Model:    openai.GPT4oMini,
		Timeout:  30,
		CacheTTL: 12 * time.Hour,
	}
}

// Classifier decides whether a headline belongs to the followed league.
// With an API key it asks the model; without one (or on any API failure)
// it falls back to the keyword heuristic, so the pipeline never depends
// on it being reachable. Intended consumer: ESCALATE items.
type Classifier struct {
	client    *openai.Client
	config    Config
	relevance *filter.Relevance
	cache     cache.Cache
}

// NewClassifier creates a classifier. relevance must not be nil; it
// backs the offline heuristic.
func NewClassifier(config Config, relevance *filter.Relevance) *Classifier {
	var client *openai.Client
	if config.APIKey != "" {
		clientConfig := openai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			clientConfig.BaseURL = config.BaseURL
		}
		client = openai.NewClientWithConfig(clientConfig)
	}

	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Classifier{
		client:    client,
		config:    config,
		relevance: relevance,
		cache:     cache.NewMemoryCache(ttl, 10*time.Minute),
	}
}

// Classify labels one headline. Results are cached per (title, url).
func (c *Classifier) Classify(ctx context.Context, title, url string) (*Classification, error) {
	key := cache.CacheKey(title + "|" + url)
	if data, found := c.cache.Get(key); found {
		var cached Classification
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	var result *Classification
	if c.client != nil {
		var err error
		result, err = c.classifyRemote(ctx, title, url)
		if err != nil {
			// API trouble falls back to the heuristic
			result = c.classifyHeuristic(title, url)
		}
	} else {
		result = c.classifyHeuristic(title, url)
	}

	if data, err := json.Marshal(result); err == nil {
		_ = c.cache.Set(key, data, c.config.CacheTTL)
	}
	return result, nil
}

// classifyHeuristic maps the keyword relevance score onto a label.
func (c *Classifier) classifyHeuristic(title, url string) *Classification {
	decision, score := c.relevance.FilterArticle(&model.Article{Title: title, URL: url})
	switch decision {
	case filter.Keep:
		return &Classification{Label: LabelNFL, Confidence: score, Reason: "keyword match"}
	case filter.Escalate:
		return &Classification{Label: LabelAmbiguous, Confidence: score, Reason: "weak keyword match"}
	default:
		return &Classification{Label: LabelNonNFL, Confidence: 1 - score, Reason: "no keyword match"}
	}
}

func (c *Classifier) classifyRemote(ctx context.Context, title, url string) (*Classification, error) {
	modelName := c.config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	timeout := time.Duration(c.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You classify sports headlines. Answer with exactly one word: NFL, NON_NFL, or AMBIGUOUS.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Headline: %s\nURL: %s\nIs this about the NFL?", title, url),
			},
		},
		MaxTokens:   10,
		Temperature: 0,
	}

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch {
	case strings.HasPrefix(answer, LabelNonNFL):
		return &Classification{Label: LabelNonNFL, Confidence: 0.9, Reason: "model verdict"}, nil
	case strings.HasPrefix(answer, LabelAmbiguous):
		return &Classification{Label: LabelAmbiguous, Confidence: 0.5, Reason: "model verdict"}, nil
	case strings.HasPrefix(answer, LabelNFL):
		return &Classification{Label: LabelNFL, Confidence: 0.9, Reason: "model verdict"}, nil
	default:
		return nil, fmt.Errorf("unparseable verdict %q", answer)
	}
}
