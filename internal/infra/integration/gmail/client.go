package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Client fala com a API do Gmail em nome de uma conta conectada. É o
// Message Dispatch Port de produção: envia, responde na thread e lista
// as mensagens de uma conversa.
type Client struct {
	baseURL  string
	token    string
	fromName string
	fromAddr string
	http     *http.Client
}

func NewClient(token, fromName, fromAddr, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		fromName: fromName,
		fromAddr: fromAddr,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SendNew envia o primeiro email (fora de qualquer thread) e retorna os
// identificadores (threadID, messageID) que o engine persiste.
func (c *Client) SendNew(ctx context.Context, to, subject, body string) (string, string, error) {
	raw := c.buildRaw(to, subject, body, "")

	resp, err := c.send(ctx, sendMessageRequest{Raw: raw})
	if err != nil {
		return "", "", err
	}

	return resp.ThreadID, resp.ID, nil
}

// SendReply envia dentro da thread existente, referenciando a última
// mensagem para o provedor encadear corretamente.
func (c *Client) SendReply(ctx context.Context, to, subject, body, threadID, lastMessageID string) (string, string, error) {
	raw := c.buildRaw(to, subject, body, lastMessageID)

	resp, err := c.send(ctx, sendMessageRequest{Raw: raw, ThreadID: threadID})
	if err != nil {
		return "", "", err
	}

	return resp.ThreadID, resp.ID, nil
}

// ListThread retorna as mensagens da conversa, na ordem do provedor.
func (c *Client) ListThread(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	url := fmt.Sprintf("%s/users/me/threads/%s?format=minimal", c.baseURL, threadID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro request gmail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("erro ao buscar thread %s (status %d): %s", threadID, resp.StatusCode, string(body))
	}

	var thread threadResponse
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		return nil, fmt.Errorf("erro decode thread: %w", err)
	}

	return thread.Messages, nil
}

func (c *Client) send(ctx context.Context, payload sendMessageRequest) (*sendMessageResponse, error) {
	url := fmt.Sprintf("%s/users/me/messages/send", c.baseURL)

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erro ao marshal mensagem: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro request gmail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("erro ao enviar email (status %d): %s", resp.StatusCode, string(body))
	}

	var response sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("erro decode envio: %w", err)
	}

	return &response, nil
}

// buildRaw monta a mensagem RFC 822 e codifica em base64url, formato que
// a API do Gmail espera no campo raw.
func (c *Client) buildRaw(to, subject, body, inReplyTo string) string {
	var msg bytes.Buffer

	fmt.Fprintf(&msg, "From: %s <%s>\r\n", c.fromName, c.fromAddr)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	if inReplyTo != "" {
		fmt.Fprintf(&msg, "In-Reply-To: <%s>\r\n", inReplyTo)
		fmt.Fprintf(&msg, "References: <%s>\r\n", inReplyTo)
	}
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return base64.URLEncoding.EncodeToString(msg.Bytes())
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}
