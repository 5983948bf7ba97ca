package services

import (
	"regexp"

	"github.com/infractl/infractl/pkg/errors"
)

const (
	maxNameLength = 63

	// Spec documents larger than this are rejected before validation.
	maxSpecBytes = 1 << 20
)

// DNS-label style names: lowercase alphanumerics and hyphens, no leading or
// trailing hyphen.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Versions additionally allow dots, e.g. v1, v1.2, 2024-06 style tags do not.
var versionPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]*[a-z0-9])?$`)

func validateName(field, name string) *errors.ServiceError {
	if name == "" {
		return errors.Validation("%s is required", field)
	}
	if len(name) > maxNameLength {
		return errors.Validation("%s must be at most %d characters", field, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return errors.Validation("%s '%s' is invalid: must consist of lowercase alphanumeric characters or '-', and must start and end with an alphanumeric character", field, name)
	}
	return nil
}

func validateVersion(version string) *errors.ServiceError {
	if version == "" {
		return errors.Validation("version is required")
	}
	if len(version) > maxNameLength {
		return errors.Validation("version must be at most %d characters", maxNameLength)
	}
	if !versionPattern.MatchString(version) {
		return errors.Validation("version '%s' is invalid: must consist of lowercase alphanumeric characters, '-' or '.', and must start and end with an alphanumeric character", version)
	}
	return nil
}
