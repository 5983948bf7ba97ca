package test

import (
	"testing"

	gm "github.com/onsi/gomega"
	"gopkg.in/resty.v1"
)

// RegisterIntegration Register a test
// This should be run before every integration test
func RegisterIntegration(t *testing.T) (*Helper, *resty.Client) {
	// Register the test with gomega
	gm.RegisterTestingT(t)
	// Create a new helper
	helper := NewHelper(t)
	// Reset the database to a seeded blank state
	if err := helper.ResetDB(); err != nil {
		t.Fatalf("unable to reset database: %s", err)
	}
	// Create an api client
	client := helper.NewApiClient()

	return helper, client
}
