package errors

import (
	"net/http"
	"testing"

	. "github.com/onsi/gomega"
)

func TestErrorFormatting(t *testing.T) {
	RegisterTestingT(t)
	err := New(ErrorGeneral, "test %s, %d", "errors", 1)
	Expect(err.Reason).To(Equal("test errors, 1"))
}

func TestErrorFind(t *testing.T) {
	RegisterTestingT(t)
	exists, err := Find(ErrorNotFound)
	Expect(exists).To(Equal(true))
	Expect(err.HttpCode).To(Equal(http.StatusNotFound))

	// Test with invalid code
	exists, err = Find(ServiceErrorCode(9999))
	Expect(exists).To(Equal(false))
	Expect(err).To(BeNil())
}

func TestErrorHttpMapping(t *testing.T) {
	RegisterTestingT(t)
	Expect(AdmissionDenied("denied").HttpCode).To(Equal(http.StatusForbidden))
	Expect(FinalizersPresent("blocked").HttpCode).To(Equal(http.StatusConflict))
	Expect(NoReconcilerForType("vpc").HttpCode).To(Equal(http.StatusBadRequest))
	Expect(Conflict("dup").IsConflict()).To(BeTrue())
	Expect(AdmissionDenied("denied").IsForbidden()).To(BeTrue())
	Expect(NotFound("missing").Is404()).To(BeTrue())
}

func TestValidationWithDetails(t *testing.T) {
	RegisterTestingT(t)
	details := []ValidationDetail{{Field: "spec.region", Error: "property 'region' is missing"}}
	err := ValidationWithDetails("Invalid spec", details)
	Expect(err.HttpCode).To(Equal(http.StatusBadRequest))
	Expect(err.Details).To(HaveLen(1))
	Expect(err.Reason).To(Equal("Invalid spec"))
}
