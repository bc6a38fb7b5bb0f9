package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gridwire/gridwire/internal/extract"
)

// ErrExtractFailed marks jobs whose URL yielded no article.
var ErrExtractFailed = errors.New("extraction failed")

// Extractor defines the interface for fetching and extracting one
// article. Implementations return nil when the URL yields nothing.
type Extractor interface {
	Extract(ctx context.Context, url string) *extract.ExtractedArticle
}

// ExtractJob represents an article extraction job
type ExtractJob struct {
	URL       string
	Extractor Extractor
}

// Execute executes the extraction job
func (j *ExtractJob) Execute(ctx context.Context) Result {
	article := j.Extractor.Extract(ctx, j.URL)
	if article == nil {
		return &ExtractResult{
			URL:     j.URL,
			Article: nil,
			Error:   ErrExtractFailed,
		}
	}
	return &ExtractResult{
		URL:     j.URL,
		Article: article,
		Error:   nil,
	}
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	URL     string
	Article *extract.ExtractedArticle
	Error   error
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts multiple article URLs concurrently
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessURLs extracts multiple URLs concurrently
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ExtractResult {
	if len(urls) == 0 {
		return []*ExtractResult{}
	}

	// Create worker pool
	pool := NewPool(b.concurrency)
	pool.Start()

	// Submit jobs
	for _, url := range urls {
		job := &ExtractJob{
			URL:       url,
			Extractor: b.extractor,
		}
		pool.Submit(job)
	}

	// Wait for all jobs to complete
	results := pool.Wait()

	// Convert to ExtractResults
	extractResults := make([]*ExtractResult, len(results))
	for i, result := range results {
		extractResults[i] = result.(*ExtractResult)
	}

	return extractResults
}

// ProcessFile reads URLs from a file and extracts them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ExtractResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate URLs
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
