package persistence

import (
	"errors"

	"github.com/cloudpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// staleVersion is returned when an optimistic update matched no row
func staleVersion(what string) error {
	return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The "+what+" record has been modified by another transaction")
}

// duplicate maps unique-constraint violations to shared.ErrAlreadyExists
func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}
