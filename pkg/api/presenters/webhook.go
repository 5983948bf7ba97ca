package presenters

import (
	"time"

	"github.com/infractl/infractl/pkg/api"
)

// AdmissionWebhook is the external representation of an api.AdmissionWebhook.
type AdmissionWebhook struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	ResourceTypeName    *string   `json:"resource_type_name,omitempty"`
	ResourceTypeVersion *string   `json:"resource_type_version,omitempty"`
	WebhookURL          string    `json:"webhook_url"`
	WebhookType         string    `json:"webhook_type"`
	Operations          []string  `json:"operations"`
	TimeoutSeconds      int32     `json:"timeout_seconds"`
	FailurePolicy       string    `json:"failure_policy"`
	Ordering            int32     `json:"ordering"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PresentAdmissionWebhook converts a database model into its external representation.
func PresentAdmissionWebhook(w *api.AdmissionWebhook) (*AdmissionWebhook, error) {
	ops, err := w.OperationList()
	if err != nil {
		return nil, err
	}

	return &AdmissionWebhook{
		ID:                  w.ID,
		Name:                w.Name,
		ResourceTypeName:    w.ResourceTypeName,
		ResourceTypeVersion: w.ResourceTypeVersion,
		WebhookURL:          w.WebhookURL,
		WebhookType:         w.WebhookType,
		Operations:          ops,
		TimeoutSeconds:      w.TimeoutSeconds,
		FailurePolicy:       w.FailurePolicy,
		Ordering:            w.Ordering,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}, nil
}

// PresentAdmissionWebhookList converts a list of database models.
func PresentAdmissionWebhookList(webhooks api.AdmissionWebhookList) ([]*AdmissionWebhook, error) {
	presented := make([]*AdmissionWebhook, 0, len(webhooks))
	for _, w := range webhooks {
		p, err := PresentAdmissionWebhook(w)
		if err != nil {
			return nil, err
		}
		presented = append(presented, p)
	}
	return presented, nil
}
