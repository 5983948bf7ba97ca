package factories

import (
	"context"
	"fmt"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/plugins/webhooks"
)

// NewWebhook registers a validating admission webhook pointing at the given
// URL, matching all resource types and operations.
func (f *Factories) NewWebhook(name, url string) (*api.AdmissionWebhook, error) {
	return f.NewWebhookForType(name, url, nil, nil)
}

// NewWebhookForType registers a validating webhook scoped to one resource
// type. Nil type arguments match every type.
func (f *Factories) NewWebhookForType(name, url string, typeName, typeVersion *string) (*api.AdmissionWebhook, error) {
	webhookService := webhooks.Service(&environments.Environment().Services)
	if webhookService == nil {
		return nil, fmt.Errorf("webhook service not initialized")
	}

	request := &api.AdmissionWebhookRequest{
		Name:                name,
		ResourceTypeName:    typeName,
		ResourceTypeVersion: typeVersion,
		WebhookURL:          url,
		WebhookType:         api.WebhookTypeValidating,
		Operations:          []string{api.OperationCreate, api.OperationUpdate, api.OperationDelete},
	}

	created, err := webhookService.Register(context.Background(), request)
	if err != nil {
		return nil, fmt.Errorf("failed to register webhook: %s", err.Reason)
	}
	return created, nil
}
