package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/seedlane/outreach/internal/entity"
	"github.com/seedlane/outreach/internal/usecase"
)

// LeadRepository é o Lead Store: dono das transições de estado e do
// audit trail de envios. RecordSend grava os dois na mesma transação.
type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `
	id, email, first_name, last_name, company, title, linkedin_url,
	linkedin_posts, enriched_at, enrichment_attempts,
	status, current_step, thread_id, last_message_id,
	imported_at, last_sent_at, next_send_at, replied_at,
	first_subject, first_body, updated_at
`

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, email, first_name, last_name, company, title, linkedin_url,
			status, current_step, imported_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Email,
		lead.FirstName,
		nullString(lead.LastName),
		nullString(lead.Company),
		nullString(lead.Title),
		nullString(lead.LinkedInURL),
		lead.Status,
		lead.CurrentStep,
		lead.ImportedAt,
		lead.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrDuplicateLead
		}
		return err
	}

	return nil
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads WHERE email = $1", leadColumns)
	return r.scanOne(r.DB.QueryRowContext(ctx, query, email))
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads WHERE id = $1", leadColumns)
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// ListByStatus retorna na ordem de importação, estável entre ciclos.
func (r *LeadRepository) ListByStatus(ctx context.Context, status string) ([]*entity.Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE status = $1
		ORDER BY imported_at, id
	`, leadColumns)

	rows, err := r.DB.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListDueFollowups: ativos com follow-up vencido, na ordem do vencimento.
func (r *LeadRepository) ListDueFollowups(ctx context.Context, now time.Time) ([]*entity.Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE status = 'active'
		AND next_send_at <= $1
		AND current_step < $2
		ORDER BY next_send_at, id
	`, leadColumns)

	rows, err := r.DB.QueryContext(ctx, query, now, entity.FinalStep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// MarkReplied só transiciona leads ainda ativos. Zero linhas afetadas
// significa que o lead já era terminal: re-detecção é no-op.
func (r *LeadRepository) MarkReplied(ctx context.Context, leadID string, now time.Time) (bool, error) {
	query := `
		UPDATE leads
		SET status = 'replied', replied_at = $2, next_send_at = NULL, updated_at = $2
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.DB.ExecContext(ctx, query, leadID, now)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *LeadRepository) MarkCompleted(ctx context.Context, leadID string, now time.Time) error {
	query := `
		UPDATE leads
		SET status = 'completed', next_send_at = NULL, updated_at = $2
		WHERE id = $1 AND status = 'active'
	`

	_, err := r.DB.ExecContext(ctx, query, leadID, now)
	return err
}

// RecordSend aplica a transição pós-envio e insere o registro de
// auditoria na MESMA transação: ou os dois persistem ou nenhum. O UPDATE
// é guardado pelo (status, current_step) que o ciclo leu, então uma run
// concorrente que já avançou o lead recebe ErrLeadConflict em vez de
// causar envio duplicado.
func (r *LeadRepository) RecordSend(ctx context.Context, lead *entity.Lead, send usecase.SendRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	newStatus := entity.StatusActive
	if send.Step >= entity.FinalStep {
		newStatus = entity.StatusCompleted
	}

	var result sql.Result
	if send.Step == 1 {
		result, err = tx.ExecContext(ctx, `
			UPDATE leads
			SET status = $4, current_step = $5, thread_id = $6, last_message_id = $7,
				last_sent_at = $8, next_send_at = $9,
				first_subject = $10, first_body = $11, updated_at = $8
			WHERE id = $1 AND status = $2 AND current_step = $3
		`,
			lead.ID, lead.Status, lead.CurrentStep,
			newStatus, send.Step, send.ThreadID, send.MessageID,
			send.SentAt, nullTime(send.NextSendAt),
			send.Subject, send.Body,
		)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE leads
			SET status = $4, current_step = $5, last_message_id = $6,
				last_sent_at = $7, next_send_at = $8, updated_at = $7
			WHERE id = $1 AND status = $2 AND current_step = $3
		`,
			lead.ID, lead.Status, lead.CurrentStep,
			newStatus, send.Step, send.MessageID,
			send.SentAt, nullTime(send.NextSendAt),
		)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrLeadConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sent_emails (lead_id, step, subject, body, message_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, lead.ID, send.Step, send.Subject, send.Body, send.MessageID, send.SentAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *LeadRepository) UpdateEnrichment(ctx context.Context, leadID string, posts []string, ok bool, now time.Time) error {
	if !ok {
		_, err := r.DB.ExecContext(ctx, `
			UPDATE leads
			SET enrichment_attempts = enrichment_attempts + 1, updated_at = $2
			WHERE id = $1
		`, leadID, now)
		return err
	}

	postsJSON, err := json.Marshal(posts)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, `
		UPDATE leads
		SET linkedin_posts = $2, enriched_at = $3,
			enrichment_attempts = enrichment_attempts + 1, updated_at = $3
		WHERE id = $1
	`, leadID, postsJSON, now)
	return err
}

// CountSentToday conta envios no dia UTC de now (quota diária).
func (r *LeadRepository) CountSentToday(ctx context.Context, now time.Time) (int, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sent_emails
		WHERE sent_at >= $1 AND sent_at < $2
	`, dayStart, dayEnd).Scan(&count)

	return count, err
}

func (r *LeadRepository) PipelineStats(ctx context.Context, now time.Time) (*usecase.PipelineStats, error) {
	stats := &usecase.PipelineStats{}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM leads GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		switch status {
		case entity.StatusNew:
			stats.New = count
		case entity.StatusActive:
			stats.Active = count
		case entity.StatusReplied:
			stats.Replied = count
		case entity.StatusCompleted:
			stats.Completed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE status = 'active' AND next_send_at <= $1 AND current_step < $2
	`, now, entity.FinalStep).Scan(&stats.DueForFollowup)
	if err != nil {
		return nil, err
	}

	stats.SentToday, err = r.CountSentToday(ctx, now)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *LeadRepository) scanOne(row *sql.Row) (*entity.Lead, error) {
	lead, err := scanLead(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	return lead, err
}

func (r *LeadRepository) scanAll(rows *sql.Rows) ([]*entity.Lead, error) {
	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows.Scan)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(scan func(dest ...any) error) (*entity.Lead, error) {
	var lead entity.Lead
	var lastName, company, title, linkedinURL sql.NullString
	var threadID, lastMessageID, firstSubject, firstBody sql.NullString
	var postsJSON []byte
	var enrichedAt, lastSentAt, nextSendAt, repliedAt sql.NullTime

	err := scan(
		&lead.ID, &lead.Email, &lead.FirstName, &lastName, &company, &title, &linkedinURL,
		&postsJSON, &enrichedAt, &lead.EnrichmentAttempts,
		&lead.Status, &lead.CurrentStep, &threadID, &lastMessageID,
		&lead.ImportedAt, &lastSentAt, &nextSendAt, &repliedAt,
		&firstSubject, &firstBody, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.LastName = lastName.String
	lead.Company = company.String
	lead.Title = title.String
	lead.LinkedInURL = linkedinURL.String
	lead.ThreadID = threadID.String
	lead.LastMessageID = lastMessageID.String
	lead.FirstSubject = firstSubject.String
	lead.FirstBody = firstBody.String

	if len(postsJSON) > 0 {
		if err := json.Unmarshal(postsJSON, &lead.LinkedInPosts); err != nil {
			return nil, fmt.Errorf("linkedin_posts corrompido para %s: %w", lead.Email, err)
		}
	}

	lead.EnrichedAt = timePtr(enrichedAt)
	lead.LastSentAt = timePtr(lastSentAt)
	lead.NextSendAt = timePtr(nextSendAt)
	lead.RepliedAt = timePtr(repliedAt)

	return &lead, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
