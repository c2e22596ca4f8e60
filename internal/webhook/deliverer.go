package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/queue"
)

// Deliverer executes webhook:deliver tasks. A failed POST returns an error
// so asynq retries with backoff; each attempt is recorded.
type Deliverer struct {
	db         *pgxpool.Pool
	httpClient *http.Client
}

func NewDeliverer(db *pgxpool.Pool, timeout time.Duration) *Deliverer {
	return &Deliverer{
		db: db,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *Deliverer) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p queue.WebhookDeliverPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	webhookID, err := uuid.Parse(p.WebhookID)
	if err != nil {
		return fmt.Errorf("parse webhook ID: %w", err)
	}

	var url, secret string
	err = d.db.QueryRow(ctx,
		"SELECT url, secret FROM webhooks WHERE id = $1 AND is_active = true", webhookID,
	).Scan(&url, &secret)
	if err != nil {
		// The webhook was removed or disabled after enqueue; nothing to do.
		slog.Warn("webhook gone, skipping delivery", "webhook_id", p.WebhookID, "event", p.Event)
		return nil
	}

	status, deliverErr := d.post(ctx, webhookID, url, secret, p.Event, []byte(p.Payload))
	d.recordDelivery(ctx, webhookID, p.Event, []byte(p.Payload), status, deliverErr)

	if deliverErr != nil {
		return deliverErr
	}
	if status >= 400 {
		return fmt.Errorf("webhook %s responded %d", p.WebhookID, status)
	}
	return nil
}

func (d *Deliverer) post(ctx context.Context, id uuid.UUID, url, secret, event string, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Signature", Sign(payload, secret))
	req.Header.Set("X-Webhook-ID", id.String())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("deliver: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func (d *Deliverer) recordDelivery(ctx context.Context, webhookID uuid.UUID, event string, payload []byte, status int, deliveryErr error) {
	var deliveredAt *time.Time
	errMsg := ""
	if deliveryErr != nil {
		errMsg = deliveryErr.Error()
	} else if status < 400 {
		now := time.Now()
		deliveredAt = &now
	}

	_, err := d.db.Exec(ctx,
		`INSERT INTO webhook_deliveries (webhook_id, event, payload, status_code, error, attempts, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, 1, $6)`,
		webhookID, event, payload, status, errMsg, deliveredAt,
	)
	if err != nil {
		slog.Error("failed to record webhook delivery", "error", err)
	}
}

// Sign computes the signature receivers verify against the shared secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
