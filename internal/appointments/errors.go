package appointments

import "errors"

var (
	// ErrInvalidRequest wraps malformed booking input (missing name, bad age, ...).
	ErrInvalidRequest = errors.New("appointments: invalid request")

	// ErrNotFound covers both missing appointments and ones owned by someone else.
	ErrNotFound = errors.New("appointments: appointment not found")

	// ErrProfileNotFound is returned by PatientLookup when the named profile does not exist.
	ErrProfileNotFound = errors.New("appointments: patient profile not found")

	// ErrCannotCancelPast is returned when cancelling an appointment dated before today.
	ErrCannotCancelPast = errors.New("appointments: cannot cancel past appointments")

	// ErrAlreadyPaid is returned when a paid appointment is confirmed or billed again.
	ErrAlreadyPaid = errors.New("appointments: appointment is already paid for")

	// ErrPaymentNotVerified is returned when the payment collaborator did not verify the signature.
	ErrPaymentNotVerified = errors.New("appointments: payment not verified")

	// ErrStoreConflict is a retryable write conflict (serialization failure,
	// deadlock, or duplicate token) reported by a store.
	ErrStoreConflict = errors.New("appointments: store conflict")

	// ErrTransient is returned once conflict retries are exhausted.
	ErrTransient = errors.New("appointments: temporarily unable to book, please retry")
)
