package dao

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/db"
)

// WebhookDao defines the data access interface for admission webhook
// registrations.
type WebhookDao interface {
	// Get retrieves a webhook by ID.
	Get(ctx context.Context, id int64) (*api.AdmissionWebhook, error)

	// Create inserts a new webhook registration.
	Create(ctx context.Context, webhook *api.AdmissionWebhook) (*api.AdmissionWebhook, error)

	// Replace updates an existing webhook registration.
	Replace(ctx context.Context, webhook *api.AdmissionWebhook) (*api.AdmissionWebhook, error)

	// Delete removes a webhook registration by ID.
	Delete(ctx context.Context, id int64) error

	// All returns every registered webhook.
	All(ctx context.Context) (api.AdmissionWebhookList, error)

	// ListForAdmission returns the chain of one webhook type that applies to
	// a resource type identity, in execution order (ordering ASC, id ASC).
	// Webhooks with no type filter apply to every resource type.
	ListForAdmission(ctx context.Context, webhookType, typeName, typeVersion string) (api.AdmissionWebhookList, error)
}

var _ WebhookDao = &sqlWebhookDao{}

type sqlWebhookDao struct {
	sessionFactory *db.SessionFactory
}

// NewWebhookDao creates a new WebhookDao instance.
func NewWebhookDao(sessionFactory *db.SessionFactory) WebhookDao {
	return &sqlWebhookDao{sessionFactory: sessionFactory}
}

func (d *sqlWebhookDao) Get(ctx context.Context, id int64) (*api.AdmissionWebhook, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var webhook api.AdmissionWebhook
	if err := g2.Take(&webhook, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &webhook, nil
}

func (d *sqlWebhookDao) Create(ctx context.Context, webhook *api.AdmissionWebhook) (*api.AdmissionWebhook, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Omit(clause.Associations).Create(webhook).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return webhook, nil
}

func (d *sqlWebhookDao) Replace(ctx context.Context, webhook *api.AdmissionWebhook) (*api.AdmissionWebhook, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Omit(clause.Associations).Save(webhook).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return webhook, nil
}

func (d *sqlWebhookDao) Delete(ctx context.Context, id int64) error {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Delete(&api.AdmissionWebhook{}, "id = ?", id).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return err
	}
	return nil
}

func (d *sqlWebhookDao) All(ctx context.Context) (api.AdmissionWebhookList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var webhooks api.AdmissionWebhookList
	if err := g2.Order("webhook_type ASC, ordering ASC, id ASC").Find(&webhooks).Error; err != nil {
		return nil, err
	}
	return webhooks, nil
}

func (d *sqlWebhookDao) ListForAdmission(ctx context.Context, webhookType, typeName, typeVersion string) (api.AdmissionWebhookList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var webhooks api.AdmissionWebhookList
	err := g2.Where("webhook_type = ?", webhookType).
		Where("resource_type_name IS NULL OR (resource_type_name = ? AND resource_type_version = ?)",
			typeName, typeVersion).
		Order("ordering ASC, id ASC").
		Find(&webhooks).Error
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}
