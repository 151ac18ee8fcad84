package lists

import "errors"

// Write failure reasons, reachable through WriteError with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrInvalidArgument  = errors.New("rejected by the backend")
	ErrUnauthenticated  = errors.New("session is no longer valid")
)

// Subscription end causes reported by Subscription.Err.
var (
	ErrSuperseded   = errors.New("replaced by a newer subscription to the same lists")
	ErrSessionEnded = errors.New("the session ended")
	ErrFeedEnded    = errors.New("the backend feed ended")
	ErrNotSignedIn  = errors.New("not signed in")
)

// ValidationError reports input rejected before any backend call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// WriteError is a failed create. Reason is one of the sentinel reasons
// above, a network error, or the raw backend error.
type WriteError struct {
	Reason error
}

func (e *WriteError) Error() string {
	return "create list: " + e.Reason.Error()
}

func (e *WriteError) Unwrap() error { return e.Reason }
