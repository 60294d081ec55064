package service

import "errors"

// Error taxonomy surfaced by the repository engine. Callers (and the wire
// adapter) match these with errors.Is; every failure is wrapped with the
// operation context via fmt.Errorf("%w: ...").
var (
	// ErrPermissionDenied: the user is missing from the permission table, or
	// a read-only user attempted a write.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrObjectNotFound: missing node, missing parent, or missing content.
	ErrObjectNotFound = errors.New("object not found")

	// ErrConstraint: non-empty folder delete, unknown/invalid type, or a
	// referential-integrity violation.
	ErrConstraint = errors.New("constraint violation")

	// ErrNameConstraint: empty or separator-containing name, or a duplicate
	// name under the same parent.
	ErrNameConstraint = errors.New("name constraint violation")

	// ErrInvalidArgument: missing required properties, unsupported
	// versioning state, or a malformed query statement.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorage: metadata or content store failures, including the
	// compensating-rollback path during document creation.
	ErrStorage = errors.New("storage failure")
)
