package services

import (
	goerrors "errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/errors"
)

// isDuplicateKeyError recognizes unique constraint violations from both the
// gorm error translation layer and the raw pq driver.
func isDuplicateKeyError(err error) bool {
	if goerrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func handleGetError(resourceType, field string, value interface{}, err error) *errors.ServiceError {
	if goerrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("%s with %s='%v' not found", resourceType, field, value)
	}
	return errors.GeneralError("Unable to get %s: %s", resourceType, err)
}

func handleCreateError(resourceType string, err error) *errors.ServiceError {
	if isDuplicateKeyError(err) {
		return errors.Conflict("This %s already exists", resourceType)
	}
	return errors.GeneralError("Unable to create %s: %s", resourceType, err)
}

func handleUpdateError(resourceType string, err error) *errors.ServiceError {
	if isDuplicateKeyError(err) {
		return errors.Conflict("Changes to %s conflict with an existing record", resourceType)
	}
	return errors.GeneralError("Unable to update %s: %s", resourceType, err)
}

func handleDeleteError(resourceType string, err error) *errors.ServiceError {
	return errors.GeneralError("Unable to delete %s: %s", resourceType, err)
}
