package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// SchemaNotAllowedError is returned when the import restriction rejects a schema.
type SchemaNotAllowedError struct {
	Schema string
}

func (e SchemaNotAllowedError) Error() string {
	return fmt.Sprintf("%s is not permitted in the database as a non-harvested metadata. Apply an import stylesheet to convert the file to an allowed schema", e.Schema)
}

func (e SchemaNotAllowedError) Is(target error) bool {
	_, ok := target.(SchemaNotAllowedError)
	return ok
}

// ReferencedDeletionBlockedError is returned when a sub-template is still referenced.
type ReferencedDeletionBlockedError struct {
	UUID string
}

func (e ReferencedDeletionBlockedError) Error() string {
	return fmt.Sprintf("record %s is referenced by other records", e.UUID)
}

func (e ReferencedDeletionBlockedError) Is(target error) bool {
	_, ok := target.(ReferencedDeletionBlockedError)
	return ok
}

// TransformFailureError wraps a failed stylesheet application.
type TransformFailureError struct {
	Stylesheet string
	Err        error
}

func (e TransformFailureError) Error() string {
	return fmt.Sprintf("transform %s failed: %v", e.Stylesheet, e.Err)
}

func (e TransformFailureError) Unwrap() error { return e.Err }

func (e TransformFailureError) Is(target error) bool {
	_, ok := target.(TransformFailureError)
	return ok
}

// ValidationFailureError reports that the validator could not run. Invalid
// records are not errors, they are reports.
type ValidationFailureError struct {
	ID  int64
	Err error
}

func (e ValidationFailureError) Error() string {
	return fmt.Sprintf("validation of record %d failed: %v", e.ID, e.Err)
}

func (e ValidationFailureError) Unwrap() error { return e.Err }

func (e ValidationFailureError) Is(target error) bool {
	_, ok := target.(ValidationFailureError)
	return ok
}

var (
	// ErrNotFound is the sentinel error for missing resources.
	ErrNotFound                  = NotFoundError{}
	ErrSchemaNotAllowed          = SchemaNotAllowedError{}
	ErrReferencedDeletionBlocked = ReferencedDeletionBlockedError{}
	ErrTransformFailure          = TransformFailureError{}
	ErrValidationFailure         = ValidationFailureError{}
)
