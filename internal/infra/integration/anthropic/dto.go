package anthropic

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// generatedEmail é o JSON que pedimos ao modelo: assunto curto e uma
// abertura personalizada de 1-2 frases.
type generatedEmail struct {
	Subject    string `json:"subject"`
	JokeOpener string `json:"joke_opener"`
}
