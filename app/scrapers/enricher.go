package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/lysyi3m/event-comb/app/queue"
)

const maxEnrichedDescription = 500

// Enricher fetches an event's detail page and extracts readable text for
// candidates whose listing description is too short to validate.
// Best-effort: callers treat any error as "keep what we have".
type Enricher struct {
	client   *Client
	requests *queue.Queue
}

func NewEnricher(client *Client, requests *queue.Queue) *Enricher {
	return &Enricher{
		client:   client,
		requests: requests,
	}
}

// Describe fetches detailURL through the platform's queue so enrichment
// respects the same pacing as listing fetches.
func (e *Enricher) Describe(ctx context.Context, platform, detailURL string) (string, error) {
	var body []byte
	err := e.requests.Submit(ctx, platform, func(ctx context.Context) error {
		var err error
		body, err = e.client.Get(ctx, detailURL)
		return err
	})
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(detailURL)
	if err != nil {
		parsedURL = nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no readable content on detail page")
	}

	// Cap by runes so multibyte text is never cut mid-character.
	if utf8.RuneCountInString(text) > maxEnrichedDescription {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxEnrichedDescription]))
	}
	return text, nil
}
