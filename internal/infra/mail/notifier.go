package mail

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/seedlane/outreach/internal/usecase"
)

type SummaryNotifier struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

// NewSummaryNotifier envia o resumo de cada ciclo por SMTP para o
// operador da campanha.
func NewSummaryNotifier(host string, port int, user, password, from, to string) *SummaryNotifier {
	return &SummaryNotifier{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

func (n *SummaryNotifier) SendCycleSummary(ranAt time.Time, summary *usecase.CycleSummary) error {
	if n.To == "" {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Ciclo de outreach concluído em %s\n\n", ranAt.Format(time.RFC1123))
	fmt.Fprintf(&body, "Novos emails enviados: %d\n", summary.NewSent)
	fmt.Fprintf(&body, "Follow-ups enviados:   %d\n", summary.FollowupsSent)
	fmt.Fprintf(&body, "Total enviado hoje:    %d\n", summary.SentToday)

	if len(summary.Replied) > 0 {
		body.WriteString("\nRespostas detectadas:\n")
		for _, email := range summary.Replied {
			fmt.Fprintf(&body, "  - %s (sequência encerrada)\n", email)
		}
	}

	if summary.DailyLimitReached {
		body.WriteString("\n⚠️ Limite diário de envios atingido.\n")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", fmt.Sprintf("Outreach: %d envios, %d respostas",
		summary.TotalSent(), len(summary.Replied)))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(n.Host, n.Port, n.User, n.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar resumo por SMTP: %w", err)
	}

	return nil
}
