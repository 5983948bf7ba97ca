package admission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao/mocks"
)

func strPtr(s string) *string { return &s }

func registerWebhook(t *testing.T, chain *Chain, webhook *api.AdmissionWebhook) {
	t.Helper()
	_, err := chain.webhookDao.Create(context.Background(), webhook)
	require.NoError(t, err)
}

func newTestChain() *Chain {
	return NewChain(mocks.NewWebhookDao())
}

func resourceDoc(spec map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":                  "primary-bucket",
		"resource_type_name":    "gcs-bucket",
		"resource_type_version": "v1",
		"spec":                  spec,
	}
}

func admissionServer(t *testing.T, handler func(Request) Response) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(handler(req)))
	}))
}

func TestAdmitAllowsWhenChainEmpty(t *testing.T) {
	chain := newTestChain()

	result, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{"region": "us-central1"}), nil)
	require.Nil(t, svcErr)
	assert.NotNil(t, result.Resource)
}

func TestAdmitDenialFromValidatingWebhook(t *testing.T) {
	server := admissionServer(t, func(req Request) Response {
		return Response{Allowed: false, Message: "region is locked"}
	})
	defer server.Close()

	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:          "region-lock",
		WebhookURL:    server.URL,
		WebhookType:   api.WebhookTypeValidating,
		FailurePolicy: api.FailurePolicyFail,
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.HttpCode)
	assert.Contains(t, svcErr.Reason, "region is locked")
}

func TestAdmitMutatingWebhookPatchesSpec(t *testing.T) {
	server := admissionServer(t, func(req Request) Response {
		return Response{
			Allowed: true,
			Patches: []PatchOp{
				{Op: "add", Path: "/spec/storage_class", Value: "STANDARD"},
			},
		}
	})
	defer server.Close()

	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:          "defaulter",
		WebhookURL:    server.URL,
		WebhookType:   api.WebhookTypeMutating,
		FailurePolicy: api.FailurePolicyFail,
	})

	result, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{"region": "us-central1"}), nil)
	require.Nil(t, svcErr)

	spec := result.Resource["spec"].(map[string]interface{})
	assert.Equal(t, "STANDARD", spec["storage_class"])
}

func TestAdmitMutatingRunsBeforeValidating(t *testing.T) {
	mutating := admissionServer(t, func(req Request) Response {
		return Response{
			Allowed: true,
			Patches: []PatchOp{{Op: "add", Path: "/spec/approved", Value: true}},
		}
	})
	defer mutating.Close()

	validating := admissionServer(t, func(req Request) Response {
		spec := req.Resource["spec"].(map[string]interface{})
		if spec["approved"] != true {
			return Response{Allowed: false, Message: "not approved"}
		}
		return Response{Allowed: true}
	})
	defer validating.Close()

	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:        "approver",
		WebhookURL:  mutating.URL,
		WebhookType: api.WebhookTypeMutating,
	})
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:        "approval-check",
		WebhookURL:  validating.URL,
		WebhookType: api.WebhookTypeValidating,
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	assert.Nil(t, svcErr)
}

func TestAdmitOrderingWithinChain(t *testing.T) {
	var calls []string
	first := admissionServer(t, func(req Request) Response {
		calls = append(calls, "first")
		return Response{Allowed: true}
	})
	defer first.Close()
	second := admissionServer(t, func(req Request) Response {
		calls = append(calls, "second")
		return Response{Allowed: true}
	})
	defer second.Close()

	chain := newTestChain()
	// Registered out of order; ordering must win.
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:        "later",
		WebhookURL:  second.URL,
		WebhookType: api.WebhookTypeValidating,
		Ordering:    10,
	})
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:        "earlier",
		WebhookURL:  first.URL,
		WebhookType: api.WebhookTypeValidating,
		Ordering:    1,
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	require.Nil(t, svcErr)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestAdmitFailurePolicyFailOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:          "flaky",
		WebhookURL:    server.URL,
		WebhookType:   api.WebhookTypeValidating,
		FailurePolicy: api.FailurePolicyFail,
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.HttpCode)
}

func TestAdmitFailurePolicyIgnoreSkipsUnreachableWebhook(t *testing.T) {
	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:          "gone",
		WebhookURL:    "http://127.0.0.1:1/admission",
		WebhookType:   api.WebhookTypeValidating,
		FailurePolicy: api.FailurePolicyIgnore,
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	assert.Nil(t, svcErr)
}

func TestAdmitSkipsWebhooksForOtherOperations(t *testing.T) {
	called := false
	server := admissionServer(t, func(req Request) Response {
		called = true
		return Response{Allowed: false}
	})
	defer server.Close()

	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:        "delete-only",
		WebhookURL:  server.URL,
		WebhookType: api.WebhookTypeValidating,
		Operations:  []byte(`["DELETE"]`),
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	assert.Nil(t, svcErr)
	assert.False(t, called)
}

func TestAdmitSkipsWebhooksForOtherTypes(t *testing.T) {
	called := false
	server := admissionServer(t, func(req Request) Response {
		called = true
		return Response{Allowed: false}
	})
	defer server.Close()

	chain := newTestChain()
	registerWebhook(t, chain, &api.AdmissionWebhook{
		Name:             "vm-only",
		WebhookURL:       server.URL,
		WebhookType:      api.WebhookTypeValidating,
		ResourceTypeName: strPtr("vm-instance"),
	})

	_, svcErr := chain.Admit(context.Background(), api.OperationCreate,
		"gcs-bucket", "v1", resourceDoc(map[string]interface{}{}), nil)
	assert.Nil(t, svcErr)
	assert.False(t, called)
}
