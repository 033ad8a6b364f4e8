package lifecycle

import (
	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

const component = "lifecycle"

var (
	// ErrBusy is returned when another commit, toggle or delete for the same
	// record is still in flight.
	ErrBusy = errors.NewStd("operation already in flight for this trigger")
	// ErrNotFound is returned for IDs missing from the active set.
	ErrNotFound = errors.NewStd("trigger not in active set")
	// ErrDeleted is returned when committing a draft whose record was deleted.
	ErrDeleted = errors.NewStd("trigger has been deleted")
)

// IsTransportError reports whether err is a store failure that left local
// state untouched and may be retried. Conflict and not-found responses from
// the store belong to this class.
func IsTransportError(err error) bool {
	return errors.HasCategory(err, errors.CategoryTransport) ||
		errors.HasCategory(err, errors.CategoryConflict) ||
		errors.HasCategory(err, errors.CategoryNotFound)
}

// IsValidationError reports whether err carries a failed validation report.
func IsValidationError(err error) bool {
	var verr *trigger.ValidationError
	return errors.As(err, &verr)
}

// storeError wraps a store failure, keeping not-found and conflict
// categories reported by the store and classifying everything else as
// transport.
func storeError(op string, t *trigger.Trigger, err error) error {
	category := errors.CategoryTransport
	switch {
	case errors.HasCategory(err, errors.CategoryNotFound):
		category = errors.CategoryNotFound
	case errors.HasCategory(err, errors.CategoryConflict):
		category = errors.CategoryConflict
	}
	b := errors.New(err).
		Component(component).
		Category(category).
		Context("operation", op)
	if t != nil {
		if t.ID != "" {
			b = b.Context("trigger_id", t.ID)
		}
		if t.Name != "" {
			b = b.Context("trigger_name", t.Name)
		}
	}
	return b.Build()
}

func busyError(op, key string) error {
	return errors.New(ErrBusy).
		Component(component).
		Category(errors.CategoryBusy).
		Context("operation", op).
		Context("key", key).
		Build()
}

func notFoundError(op, id string) error {
	return errors.New(ErrNotFound).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("operation", op).
		Context("trigger_id", id).
		Build()
}

func validationError(report trigger.ValidationReport) error {
	return errors.New(report.Err()).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}
