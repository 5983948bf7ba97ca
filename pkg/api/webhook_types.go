package api

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Webhook types
const (
	WebhookTypeMutating   = "mutating"
	WebhookTypeValidating = "validating"
)

// Webhook failure policies
const (
	FailurePolicyFail   = "Fail"
	FailurePolicyIgnore = "Ignore"
)

// Webhook operations
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

// DefaultWebhookTimeoutSeconds is applied when a webhook omits timeout_seconds.
const DefaultWebhookTimeoutSeconds = 10

// AdmissionWebhook is an external HTTP callback that inspects or mutates a
// resource before persistence. A nil type filter matches all resource types.
type AdmissionWebhook struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:63;not null;uniqueIndex"`

	ResourceTypeName    *string `json:"resource_type_name,omitempty" gorm:"size:63"`
	ResourceTypeVersion *string `json:"resource_type_version,omitempty" gorm:"size:63"`

	WebhookURL     string         `json:"webhook_url" gorm:"size:1024;not null"`
	WebhookType    string         `json:"webhook_type" gorm:"size:32;not null"`
	Operations     datatypes.JSON `json:"operations" gorm:"type:jsonb;not null"`
	TimeoutSeconds int32          `json:"timeout_seconds" gorm:"default:10;not null"`
	FailurePolicy  string         `json:"failure_policy" gorm:"size:32;not null;default:Fail"`
	Ordering       int32          `json:"ordering" gorm:"default:0;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for GORM.
func (AdmissionWebhook) TableName() string {
	return "admission_webhooks"
}

// AdmissionWebhookList is a slice of AdmissionWebhook pointers.
type AdmissionWebhookList []*AdmissionWebhook

// BeforeCreate is a GORM hook that applies defaults before insert.
func (w *AdmissionWebhook) BeforeCreate(tx *gorm.DB) error {
	if w.TimeoutSeconds == 0 {
		w.TimeoutSeconds = DefaultWebhookTimeoutSeconds
	}
	if w.FailurePolicy == "" {
		w.FailurePolicy = FailurePolicyFail
	}
	if len(w.Operations) == 0 {
		w.Operations = datatypes.JSON([]byte(`["CREATE","UPDATE","DELETE"]`))
	}
	return nil
}

// OperationList decodes the jsonb operations set.
func (w *AdmissionWebhook) OperationList() ([]string, error) {
	var ops []string
	if err := json.Unmarshal(w.Operations, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// MatchesOperation reports whether the webhook subscribes to the operation.
func (w *AdmissionWebhook) MatchesOperation(op string) bool {
	ops, err := w.OperationList()
	if err != nil {
		return false
	}
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// AdmissionWebhookRequest is the POST/PUT body for webhook management.
type AdmissionWebhookRequest struct {
	Name                string   `json:"name"`
	ResourceTypeName    *string  `json:"resource_type_name,omitempty"`
	ResourceTypeVersion *string  `json:"resource_type_version,omitempty"`
	WebhookURL          string   `json:"webhook_url"`
	WebhookType         string   `json:"webhook_type"`
	Operations          []string `json:"operations,omitempty"`
	TimeoutSeconds      *int32   `json:"timeout_seconds,omitempty"`
	FailurePolicy       *string  `json:"failure_policy,omitempty"`
	Ordering            *int32   `json:"ordering,omitempty"`
}
