package integration

import (
	"fmt"
	"net/http"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/test"
)

func TestResourceLifecycle(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	reconciler, typeName, typeVersion, err := h.Factories.NewReconciledType()
	Expect(err).NotTo(HaveOccurred())

	name := fmt.Sprintf("res-%s", h.Factories.NewID())
	body := map[string]interface{}{
		"name":                  name,
		"resource_type_name":    typeName,
		"resource_type_version": typeVersion,
		"spec":                  map[string]interface{}{"size": "small"},
	}

	var created presenters.Resource
	resp, restErr := client.R().SetBody(body).SetResult(&created).Post("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusCreated))
	Expect(created.ID).NotTo(BeZero())
	Expect(created.Name).To(Equal(name))
	Expect(created.Status).To(Equal("pending"))
	Expect(created.Generation).To(Equal(int32(1)))
	Expect(created.ObservedGeneration).To(Equal(int32(0)))
	Expect(created.Finalizers).To(ConsistOf(reconciler.Finalizer()))
	Expect(created.SpecHash).To(HaveLen(64))

	var fetched presenters.Resource
	resp, restErr = client.R().SetResult(&fetched).Get(fmt.Sprintf("/resources/%d", created.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(fetched.Spec).To(HaveKeyWithValue("size", "small"))
}

func TestResourceCreateUnknownType(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	body := map[string]interface{}{
		"name":                  fmt.Sprintf("res-%s", h.Factories.NewID()),
		"resource_type_name":    "no-such-type",
		"resource_type_version": "v1",
		"spec":                  map[string]interface{}{"size": "small"},
	}
	resp, err := client.R().SetBody(body).Post("/resources")
	Expect(err).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))
}

func TestResourceCreateSpecValidation(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, typeName, typeVersion, err := h.Factories.NewReconciledType()
	Expect(err).NotTo(HaveOccurred())

	// Missing the required "size" field
	body := map[string]interface{}{
		"name":                  fmt.Sprintf("res-%s", h.Factories.NewID()),
		"resource_type_name":    typeName,
		"resource_type_version": typeVersion,
		"spec":                  map[string]interface{}{"region": "eu-west-1"},
	}
	resp, restErr := client.R().SetBody(body).Post("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))

	// Value outside the enum
	body["spec"] = map[string]interface{}{"size": "gigantic"}
	resp, restErr = client.R().SetBody(body).Post("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))

	// Undeclared property
	body["spec"] = map[string]interface{}{"size": "small", "color": "blue"}
	resp, restErr = client.R().SetBody(body).Post("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
}

func TestResourceCreateWithoutReconciler(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	// Type registered, but no reconciler for it
	resourceType, err := h.Factories.NewResourceType(fmt.Sprintf("type-%s", h.Factories.NewID()), "v1")
	Expect(err).NotTo(HaveOccurred())

	body := map[string]interface{}{
		"name":                  fmt.Sprintf("res-%s", h.Factories.NewID()),
		"resource_type_name":    resourceType.Name,
		"resource_type_version": resourceType.Version,
		"spec":                  map[string]interface{}{"size": "small"},
	}
	resp, restErr := client.R().SetBody(body).Post("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
}

func TestResourceSpecUpdateBumpsGeneration(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	var updated presenters.Resource
	body := map[string]interface{}{
		"spec": map[string]interface{}{"size": "large"},
	}
	resp, restErr := client.R().SetBody(body).SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d/spec", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(updated.Generation).To(Equal(int32(2)))
	Expect(updated.Status).To(Equal("pending"))
	Expect(updated.Spec).To(HaveKeyWithValue("size", "large"))

	// The same spec again is a no-op
	resp, restErr = client.R().SetBody(body).SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d/spec", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(updated.Generation).To(Equal(int32(2)))
}

func TestResourceSpecUpdateKeyOrderIsNoOp(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, typeName, typeVersion, err := h.Factories.NewReconciledType()
	Expect(err).NotTo(HaveOccurred())

	resource, err := h.Factories.NewResource(fmt.Sprintf("res-%s", h.Factories.NewID()),
		typeName, typeVersion, map[string]interface{}{"size": "small", "region": "us-east-1"})
	Expect(err).NotTo(HaveOccurred())

	// Same document, different key order in the serialized body
	var updated presenters.Resource
	resp, restErr := client.R().
		SetBody(`{"spec":{"region":"us-east-1","size":"small"}}`).
		SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d/spec", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(updated.Generation).To(Equal(resource.Generation))
}

func TestResourceFinalizerPatch(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	var updated presenters.Resource
	body := map[string]interface{}{
		"add": []string{"backup/hold"},
	}
	resp, restErr := client.R().SetBody(body).SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d/finalizers", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(updated.Finalizers).To(ContainElement("backup/hold"))

	// Adding an already-present finalizer keeps the set semantics
	resp, restErr = client.R().SetBody(body).SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d/finalizers", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	count := 0
	for _, f := range updated.Finalizers {
		if f == "backup/hold" {
			count++
		}
	}
	Expect(count).To(Equal(1))

	body = map[string]interface{}{
		"remove": []string{"backup/hold"},
	}
	resp, restErr = client.R().SetBody(body).SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d/finalizers", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(updated.Finalizers).NotTo(ContainElement("backup/hold"))

	// Empty finalizer names are rejected
	resp, restErr = client.R().
		SetBody(map[string]interface{}{"add": []string{""}}).
		Put(fmt.Sprintf("/resources/%d/finalizers", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
}

func TestResourceDeleteIsSoftUntilFinalizersClear(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	reconciler, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	resp, restErr := client.R().Delete(fmt.Sprintf("/resources/%d", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusAccepted))

	// Still present in the table; the reconciler finalizer holds it
	Expect(h.Count("resources")).To(Equal(int64(1)))

	// Deleting again is idempotent
	resp, restErr = client.R().Delete(fmt.Sprintf("/resources/%d", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusAccepted))

	// Releasing the reconciler's finalizer completes the deletion
	body := map[string]interface{}{
		"remove": []string{reconciler.Finalizer()},
	}
	resp, restErr = client.R().SetBody(body).
		Put(fmt.Sprintf("/resources/%d/finalizers", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))

	Expect(h.Count("resources")).To(Equal(int64(0)))
}

func TestResourceManualReconcileRequest(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	resp, restErr := client.R().Post(fmt.Sprintf("/resources/%d/reconcile", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusAccepted))

	var fetched presenters.Resource
	resp, restErr = client.R().SetResult(&fetched).Get(fmt.Sprintf("/resources/%d", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(fetched.Status).To(Equal("pending"))
	Expect(fetched.NextReconcileTime).NotTo(BeNil())
}

func TestResourceList(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, typeName, typeVersion, err := h.Factories.NewReconciledType()
	Expect(err).NotTo(HaveOccurred())
	for i := 0; i < 3; i++ {
		_, err := h.Factories.NewResource(fmt.Sprintf("res-%s", h.Factories.NewID()), typeName, typeVersion, nil)
		Expect(err).NotTo(HaveOccurred())
	}

	var listed struct {
		Kind  string                 `json:"kind"`
		Total int64                  `json:"total"`
		Items []*presenters.Resource `json:"items"`
	}
	resp, restErr := client.R().SetResult(&listed).Get("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(listed.Kind).To(Equal("ResourceList"))
	Expect(listed.Items).To(HaveLen(3))

	// Search narrows by indexed column
	resp, restErr = client.R().
		SetQueryParam("search", fmt.Sprintf("resource_type_name = '%s'", typeName)).
		SetResult(&listed).
		Get("/resources")
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(listed.Items).To(HaveLen(3))
}

func TestResourceGetByName(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	var fetched presenters.Resource
	resp, restErr := client.R().SetResult(&fetched).
		Get(fmt.Sprintf("/resources/by-name/%s/%s/%s",
			resource.ResourceTypeName, resource.ResourceTypeVersion, resource.Name))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(fetched.ID).To(Equal(resource.ID))
	Expect(fetched.Name).To(Equal(resource.Name))

	resp, restErr = client.R().
		Get(fmt.Sprintf("/resources/by-name/%s/%s/no-such-resource",
			resource.ResourceTypeName, resource.ResourceTypeVersion))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))
}

func TestResourceReplaceSpecAtResourcePath(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	// PUT on the resource itself replaces the spec, same as /spec
	body := map[string]interface{}{"spec": map[string]interface{}{"size": "large"}}
	var updated presenters.Resource
	resp, restErr := client.R().SetBody(body).SetResult(&updated).
		Put(fmt.Sprintf("/resources/%d", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(updated.Generation).To(Equal(int32(2)))
	Expect(updated.Spec).To(HaveKeyWithValue("size", "large"))
}

func TestResourceOutputsEndpoint(t *testing.T) {
	h, client := test.RegisterIntegration(t)

	_, resource, err := h.Factories.NewResourceOfNewType()
	Expect(err).NotTo(HaveOccurred())

	// Outputs start empty
	outputs := map[string]interface{}{}
	resp, restErr := client.R().SetResult(&outputs).
		Get(fmt.Sprintf("/resources/%d/outputs", resource.ID))
	Expect(restErr).NotTo(HaveOccurred())
	Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	Expect(outputs).To(BeEmpty())
}

func TestHealthEndpointOnAPIPort(t *testing.T) {
	h, _ := test.RegisterIntegration(t)

	resp, err := http.Get(h.APIURL("/health"))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
}
