package services

import (
	"context"
	"encoding/json"
	"net/url"

	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/logger"
)

// WebhookService manages admission webhook registrations.
type WebhookService interface {
	Register(ctx context.Context, request *api.AdmissionWebhookRequest) (*api.AdmissionWebhook, *errors.ServiceError)
	Get(ctx context.Context, id int64) (*api.AdmissionWebhook, *errors.ServiceError)
	All(ctx context.Context) (api.AdmissionWebhookList, *errors.ServiceError)
	Update(ctx context.Context, id int64, request *api.AdmissionWebhookRequest) (*api.AdmissionWebhook, *errors.ServiceError)
	Delete(ctx context.Context, id int64) *errors.ServiceError
}

func NewWebhookService(webhookDao dao.WebhookDao) WebhookService {
	return &sqlWebhookService{webhookDao: webhookDao}
}

var _ WebhookService = &sqlWebhookService{}

type sqlWebhookService struct {
	webhookDao dao.WebhookDao
}

func validateWebhookRequest(request *api.AdmissionWebhookRequest) *errors.ServiceError {
	if serviceErr := validateName("name", request.Name); serviceErr != nil {
		return serviceErr
	}

	if request.WebhookType != api.WebhookTypeMutating && request.WebhookType != api.WebhookTypeValidating {
		return errors.Validation("webhook_type must be '%s' or '%s'", api.WebhookTypeMutating, api.WebhookTypeValidating)
	}

	parsed, err := url.Parse(request.WebhookURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.Validation("webhook_url must be a valid http or https URL")
	}

	if request.FailurePolicy != nil &&
		*request.FailurePolicy != api.FailurePolicyFail && *request.FailurePolicy != api.FailurePolicyIgnore {
		return errors.Validation("failure_policy must be '%s' or '%s'", api.FailurePolicyFail, api.FailurePolicyIgnore)
	}

	if request.TimeoutSeconds != nil && (*request.TimeoutSeconds < 1 || *request.TimeoutSeconds > 30) {
		return errors.Validation("timeout_seconds must be between 1 and 30")
	}

	for _, op := range request.Operations {
		if op != api.OperationCreate && op != api.OperationUpdate && op != api.OperationDelete {
			return errors.Validation("operation '%s' is invalid: must be one of CREATE, UPDATE, DELETE", op)
		}
	}

	return nil
}

func applyWebhookRequest(webhook *api.AdmissionWebhook, request *api.AdmissionWebhookRequest) *errors.ServiceError {
	webhook.Name = request.Name
	webhook.WebhookType = request.WebhookType
	webhook.WebhookURL = request.WebhookURL

	if request.ResourceTypeName != nil {
		webhook.ResourceTypeName = request.ResourceTypeName
		webhook.ResourceTypeVersion = request.ResourceTypeVersion
	}
	if request.FailurePolicy != nil {
		webhook.FailurePolicy = *request.FailurePolicy
	}
	if request.TimeoutSeconds != nil {
		webhook.TimeoutSeconds = *request.TimeoutSeconds
	}
	if request.Ordering != nil {
		webhook.Ordering = *request.Ordering
	}
	if request.Operations != nil {
		operations, err := json.Marshal(request.Operations)
		if err != nil {
			return errors.Validation("operations are not valid JSON: %s", err)
		}
		webhook.Operations = datatypes.JSON(operations)
	}
	return nil
}

func (s *sqlWebhookService) Register(ctx context.Context, request *api.AdmissionWebhookRequest) (*api.AdmissionWebhook, *errors.ServiceError) {
	if serviceErr := validateWebhookRequest(request); serviceErr != nil {
		return nil, serviceErr
	}

	webhook := &api.AdmissionWebhook{}
	if serviceErr := applyWebhookRequest(webhook, request); serviceErr != nil {
		return nil, serviceErr
	}

	created, err := s.webhookDao.Create(ctx, webhook)
	if err != nil {
		return nil, handleCreateError("AdmissionWebhook", err)
	}

	logger.Info(ctx, "Registered admission webhook",
		"name", created.Name,
		"webhook_type", created.WebhookType)
	return created, nil
}

func (s *sqlWebhookService) Get(ctx context.Context, id int64) (*api.AdmissionWebhook, *errors.ServiceError) {
	webhook, err := s.webhookDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("AdmissionWebhook", "id", id, err)
	}
	return webhook, nil
}

func (s *sqlWebhookService) All(ctx context.Context) (api.AdmissionWebhookList, *errors.ServiceError) {
	webhooks, err := s.webhookDao.All(ctx)
	if err != nil {
		return nil, errors.GeneralError("Unable to list admission webhooks: %s", err)
	}
	return webhooks, nil
}

func (s *sqlWebhookService) Update(ctx context.Context, id int64, request *api.AdmissionWebhookRequest) (*api.AdmissionWebhook, *errors.ServiceError) {
	if serviceErr := validateWebhookRequest(request); serviceErr != nil {
		return nil, serviceErr
	}

	webhook, err := s.webhookDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("AdmissionWebhook", "id", id, err)
	}
	if serviceErr := applyWebhookRequest(webhook, request); serviceErr != nil {
		return nil, serviceErr
	}

	updated, err := s.webhookDao.Replace(ctx, webhook)
	if err != nil {
		return nil, handleUpdateError("AdmissionWebhook", err)
	}
	return updated, nil
}

func (s *sqlWebhookService) Delete(ctx context.Context, id int64) *errors.ServiceError {
	if _, err := s.webhookDao.Get(ctx, id); err != nil {
		return handleGetError("AdmissionWebhook", "id", id, err)
	}
	if err := s.webhookDao.Delete(ctx, id); err != nil {
		return handleDeleteError("AdmissionWebhook", err)
	}
	logger.Info(ctx, "Deleted admission webhook", "webhook_id", id)
	return nil
}
