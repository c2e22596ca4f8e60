// Package webhook notifies registered endpoints about prompt lifecycle
// changes. Dispatch only enqueues; delivery happens in the worker process.
package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/queue"
)

const (
	EventPromptCreated   = "prompt.created"
	EventPromptUpdated   = "prompt.updated"
	EventPromptActivated = "prompt.activated"
	EventPromptArchived  = "prompt.archived"
	EventPromptDeleted   = "prompt.deleted"
)

// Enqueuer hands deliveries to the task queue.
type Enqueuer interface {
	EnqueueWebhookDeliver(payload queue.WebhookDeliverPayload) error
}

type Service struct {
	db       *pgxpool.Pool
	enqueuer Enqueuer
}

func NewService(db *pgxpool.Pool, enqueuer Enqueuer) *Service {
	return &Service{db: db, enqueuer: enqueuer}
}

type CreateRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Webhook, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	eventsJSON, _ := json.Marshal(req.Events)

	var wh models.Webhook
	err = s.db.QueryRow(ctx,
		`INSERT INTO webhooks (url, events, secret, is_active)
		 VALUES ($1, $2, $3, true)
		 RETURNING id, url, events, is_active, created_at`,
		req.URL, eventsJSON, secret,
	).Scan(&wh.ID, &wh.URL, &wh.Events, &wh.IsActive, &wh.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert webhook: %w", err)
	}

	// Return secret only on creation
	wh.Secret = secret

	return &wh, nil
}

func (s *Service) List(ctx context.Context) ([]models.Webhook, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, url, events, is_active, created_at
		 FROM webhooks ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []models.Webhook
	for rows.Next() {
		var wh models.Webhook
		if err := rows.Scan(&wh.ID, &wh.URL, &wh.Events, &wh.IsActive, &wh.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		webhooks = append(webhooks, wh)
	}
	return webhooks, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM webhooks WHERE id = $1", id)
	return err
}

// Dispatch enqueues a delivery task for every active webhook subscribed
// to the event.
func (s *Service) Dispatch(ctx context.Context, event string, payload interface{}) error {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM webhooks
		 WHERE is_active = true AND events @> $1::jsonb`,
		fmt.Sprintf(`["%s"]`, event),
	)
	if err != nil {
		return fmt.Errorf("find matching webhooks: %w", err)
	}
	defer rows.Close()

	payloadJSON, _ := json.Marshal(payload)

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			continue
		}
		if s.enqueuer != nil {
			if err := s.enqueuer.EnqueueWebhookDeliver(queue.WebhookDeliverPayload{
				WebhookID: id.String(),
				Event:     event,
				Payload:   string(payloadJSON),
			}); err != nil {
				return fmt.Errorf("enqueue delivery: %w", err)
			}
		}
	}
	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
