package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"matatu_hub/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrVehicleInSacco   = errors.New("vehicle is already registered with a sacco")
	ErrDuplicateRequest = errors.New("a pending join request already exists for this vehicle and sacco")
	ErrForbidden        = errors.New("not permitted")
)

// ValidationError reports caller-fixable input problems.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// MissingDocumentsError lists the required document types a vehicle lacks.
type MissingDocumentsError struct {
	Missing []models.DocumentType
}

func (e *MissingDocumentsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, d := range e.Missing {
		names[i] = string(d)
	}
	return "missing required documents: " + strings.Join(names, ", ")
}

// AlreadyProcessedError is returned when a decision targets a request that
// already reached a terminal status.
type AlreadyProcessedError struct {
	Status models.JoinRequestStatus
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("Request is already %s", e.Status)
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// isUniqueViolation recognises unique constraint failures from every driver
// the service runs on.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
