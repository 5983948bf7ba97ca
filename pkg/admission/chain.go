package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/resty.v1"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/logger"
)

// Request is the body POSTed to every admission webhook.
type Request struct {
	Operation   string                 `json:"operation"`
	Resource    map[string]interface{} `json:"resource"`
	OldResource map[string]interface{} `json:"old_resource,omitempty"`
}

// Response is the expected webhook reply.
type Response struct {
	Allowed bool      `json:"allowed"`
	Message string    `json:"message,omitempty"`
	Patches []PatchOp `json:"patches,omitempty"`
}

// Result carries the outcome of a full admission pass.
type Result struct {
	// Resource is the (possibly mutated) resource document.
	Resource map[string]interface{}
	// Warnings collects deprecation warnings from patch application.
	Warnings []string
}

// Chain runs registered admission webhooks against a write operation:
// the mutating chain first, then the validating chain, each in
// (ordering, id) order. Each webhook gets exactly one attempt.
type Chain struct {
	webhookDao dao.WebhookDao
	client     *resty.Client
}

// NewChain creates an admission chain over the registered webhooks.
func NewChain(webhookDao dao.WebhookDao) *Chain {
	client := resty.New()
	client.SetRetryCount(0)
	return &Chain{
		webhookDao: webhookDao,
		client:     client,
	}
}

// Admit runs both webhook chains for an operation on a resource document.
// A denial or an unreachable Fail-policy webhook aborts with AdmissionDenied;
// Ignore-policy failures are logged and skipped.
func (c *Chain) Admit(ctx context.Context, operation, typeName, typeVersion string, resource, oldResource map[string]interface{}) (*Result, *errors.ServiceError) {
	result := &Result{Resource: resource}

	mutating, err := c.webhookDao.ListForAdmission(ctx, api.WebhookTypeMutating, typeName, typeVersion)
	if err != nil {
		return nil, errors.GeneralError("failed to load mutating webhooks: %v", err)
	}
	if svcErr := c.runChain(ctx, mutating, operation, oldResource, result, true); svcErr != nil {
		return nil, svcErr
	}

	validating, err := c.webhookDao.ListForAdmission(ctx, api.WebhookTypeValidating, typeName, typeVersion)
	if err != nil {
		return nil, errors.GeneralError("failed to load validating webhooks: %v", err)
	}
	if svcErr := c.runChain(ctx, validating, operation, oldResource, result, false); svcErr != nil {
		return nil, svcErr
	}

	return result, nil
}

func (c *Chain) runChain(ctx context.Context, webhooks api.AdmissionWebhookList, operation string, oldResource map[string]interface{}, result *Result, applyPatches bool) *errors.ServiceError {
	for _, webhook := range webhooks {
		if !webhook.MatchesOperation(operation) {
			continue
		}

		response, err := c.call(ctx, webhook, Request{
			Operation:   operation,
			Resource:    result.Resource,
			OldResource: oldResource,
		})
		if err != nil {
			if webhook.FailurePolicy == api.FailurePolicyIgnore {
				logger.Warn(ctx, "Ignoring unreachable admission webhook",
					logger.FieldWebhook, webhook.Name,
					logger.FieldWebhookURL, webhook.WebhookURL,
					logger.FieldFailurePolicy, webhook.FailurePolicy,
					"error", err.Error())
				continue
			}
			return errors.AdmissionDenied("webhook %q failed: %v", webhook.Name, err)
		}

		if !response.Allowed {
			message := response.Message
			if message == "" {
				message = fmt.Sprintf("denied by webhook %q", webhook.Name)
			}
			return errors.AdmissionDenied("%s", message)
		}

		if applyPatches && len(response.Patches) > 0 {
			spec, ok := result.Resource["spec"].(map[string]interface{})
			if !ok {
				return errors.GeneralError("resource document has no spec object")
			}
			warnings, err := ApplyPatches(spec, response.Patches)
			result.Warnings = append(result.Warnings, warnings...)
			for _, w := range warnings {
				logger.Warn(ctx, "Deprecated admission patch path",
					logger.FieldWebhook, webhook.Name, "warning", w)
			}
			if err != nil {
				return errors.AdmissionDenied("webhook %q returned an invalid patch: %v", webhook.Name, err)
			}
		}
	}
	return nil
}

// call performs the single HTTP attempt for one webhook. Transport errors and
// 5xx responses are failures; anything else must decode as a Response.
func (c *Chain) call(ctx context.Context, webhook *api.AdmissionWebhook, request Request) (*Response, error) {
	timeout := time.Duration(webhook.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = api.DefaultWebhookTimeoutSeconds * time.Second
	}

	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(requestCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(webhook.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("webhook returned unexpected status %d", resp.StatusCode())
	}

	var response Response
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("webhook returned a malformed response: %w", err)
	}
	return &response, nil
}
