package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seedlane/outreach/internal/entity"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	defaultModel   = "claude-opus-4-5-20251101"
	apiVersion     = "2023-06-01"
)

// templateRenderer é o contrato mínimo que o composer precisa para
// montar o corpo final em volta do texto gerado.
type templateRenderer interface {
	Render(name string, vars map[string]string) (string, error)
}

// Client gera o primeiro email personalizado via API da Anthropic.
// Qualquer falha (rede, JSON inválido do modelo) vira erro para o
// orquestrador aplicar o template estático de fallback.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	templates templateRenderer
	http      *http.Client
}

func NewClient(apiKey, baseURL string, templates templateRenderer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     defaultModel,
		templates: templates,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

// GenerateFirstEmail pede subject + abertura ao modelo, renderiza o
// template email_1.md com eles e devolve (subject, body).
func (c *Client) GenerateFirstEmail(ctx context.Context, lead *entity.Lead, posts []string) (string, string, error) {
	senderContext, err := c.templates.Render("context.md", nil)
	if err != nil {
		return "", "", fmt.Errorf("contexto do remetente indisponível: %w", err)
	}

	generated, err := c.complete(ctx, buildSystemPrompt(senderContext), buildUserMessage(lead, posts))
	if err != nil {
		return "", "", err
	}

	company := lead.Company
	if company == "" {
		company = "your company"
	}

	body, err := c.templates.Render("email_1.md", map[string]string{
		"generated_subject":     generated.Subject,
		"generated_joke_opener": generated.JokeOpener,
		"first_name":            lead.FirstName,
		"last_name":             lead.LastName,
		"company":               company,
	})
	if err != nil {
		return "", "", fmt.Errorf("erro ao renderizar email_1.md: %w", err)
	}

	subject := generated.Subject
	if subject == "" {
		subject = "quick question"
	}

	// O template pode trazer seu próprio "Subject:" na primeira linha.
	body = strings.TrimSpace(body)
	lines := strings.SplitN(body, "\n", 2)
	if len(lines) > 0 && strings.HasPrefix(strings.ToLower(lines[0]), "subject:") {
		subject = strings.TrimSpace(lines[0][len("subject:"):])
		body = ""
		if len(lines) == 2 {
			body = strings.TrimSpace(lines[1])
		}
	}

	return subject, body, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (*generatedEmail, error) {
	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: 500,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erro ao marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro request anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("erro na geração (status %d): %s", resp.StatusCode, string(body))
	}

	var response messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("erro decode anthropic: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("resposta sem conteúdo")
	}

	return parseGenerated(response.Content[0].Text)
}

// parseGenerated aceita o JSON puro ou embrulhado em cerca de código
// markdown, como os modelos costumam devolver.
func parseGenerated(text string) (*generatedEmail, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) >= 2 {
			text = parts[1]
		}
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSpace(text)
	}

	var generated generatedEmail
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return nil, fmt.Errorf("JSON inválido do modelo: %w", err)
	}

	return &generated, nil
}

func buildSystemPrompt(senderContext string) string {
	return fmt.Sprintf(`You are writing cold outreach emails. Generate a personalized, genuinely funny opening line based on the lead's LinkedIn profile and posts.

## Context about the sender:
%s

## Rules:
- Find something to riff on: a post, their title, their company, anything
- Keep it to 1-2 lines. Self-deprecating beats clever. Warm beats edgy. Never mean.
- If their LinkedIn is empty, joke about how clean the profile is.

## Output format:
Return a JSON object with exactly two fields:
- "subject": a 3-6 word subject line, lowercase, curiosity-inducing
- "joke_opener": the 1-2 sentence personalized opening`, senderContext)
}

func buildUserMessage(lead *entity.Lead, posts []string) string {
	postsText := "No recent posts found."
	if len(posts) > 0 {
		var b strings.Builder
		for _, post := range posts {
			fmt.Fprintf(&b, "- %s\n", post)
		}
		postsText = b.String()
	}

	company := lead.Company
	if company == "" {
		company = "Unknown"
	}
	title := lead.Title
	if title == "" {
		title = "Unknown"
	}

	return fmt.Sprintf(`Generate a personalized joke opener for this lead:

Name: %s %s
Company: %s
Title: %s

Their recent LinkedIn posts:
%s

Remember: return valid JSON with "subject" and "joke_opener" fields only.`,
		lead.FirstName, lead.LastName, company, title, postsText)
}
