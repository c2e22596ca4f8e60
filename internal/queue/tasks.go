package queue

const TypeWebhookDeliver = "webhook:deliver"

type WebhookDeliverPayload struct {
	WebhookID string `json:"webhook_id"`
	Event     string `json:"event"`
	Payload   string `json:"payload"` // JSON string
}
