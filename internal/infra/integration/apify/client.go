package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/seedlane/outreach/internal/entity"
)

const (
	DefaultBaseURL = "https://api.apify.com/v2"
	actorID        = "curious_coder~linkedin-profile-scraper"
	maxPosts       = 5
)

// Client busca posts recentes do LinkedIn de um lead via Apify. Dados
// ausentes (sem API key, sem URL de perfil) degradam para uma lista
// vazia: personalização reduzida, nunca envio bloqueado.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *Client) Enrich(ctx context.Context, lead *entity.Lead) ([]string, error) {
	if c.apiKey == "" {
		log.Printf("⚠️ APIFY_API_KEY não configurada, pulando enriquecimento")
		return nil, nil
	}
	if lead.LinkedInURL == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, actorID)

	payload := runSyncRequest{
		StartURLs:          []startURL{{URL: lead.LinkedInURL}},
		IncludeRecentPosts: true,
		MaxPosts:           maxPosts,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erro ao marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro request apify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("erro no scraper (status %d): %s", resp.StatusCode, string(body))
	}

	var items []profileItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("erro decode apify: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	var posts []string
	for _, post := range items[0].RecentPosts {
		if post.Text != "" {
			posts = append(posts, post.Text)
		}
	}

	return posts, nil
}
