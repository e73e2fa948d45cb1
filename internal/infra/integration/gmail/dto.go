package gmail

// ThreadMessage é um registro opaco de mensagem dentro de uma conversa.
// O engine só precisa contar mensagens; os demais campos ficam para
// debug e auditoria.
type ThreadMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet,omitempty"`
}

type sendMessageRequest struct {
	Raw      string `json:"raw"`
	ThreadID string `json:"threadId,omitempty"`
}

type sendMessageResponse struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type threadResponse struct {
	ID       string          `json:"id"`
	Messages []ThreadMessage `json:"messages"`
}
