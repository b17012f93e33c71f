package errors

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Error kinds returned by the fulfillment core. Every error leaving a
// service is marked with exactly one of these.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrConflict         = errors.New("conflict")
	ErrUnavailable      = errors.New("unavailable")
	ErrInternal         = errors.New("internal error")

	// ErrAlreadyExists qualifies a Conflict caused by a duplicate business
	// key. Such conflicts are final and never retried.
	ErrAlreadyExists = errors.New("already exists")

	// order matters: the first matching kind wins
	statusCodes = []struct {
		kind   error
		status int
	}{
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrInvalidArgument, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrInvalidState, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
	}
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsConflict reports whether err is a conflict, retryable or not.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRetryable reports whether re-running the failed transaction may succeed.
func IsRetryable(err error) bool {
	return IsConflict(err) && !errors.Is(err, ErrAlreadyExists)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// HTTPStatusFromErr maps an error kind to the HTTP status returned to clients.
func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.kind) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}

// DisplayMessage returns the human-readable reason for err. Hints attached
// with WithHint take precedence over the raw message chain.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return hints[0]
	}
	return err.Error()
}

// ReportableDetails collects the details attached with WithReportableDetails
// anywhere in the chain. Later keys overwrite earlier ones.
func ReportableDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			raw, ok := strings.CutPrefix(payload, reportablePrefix)
			if !ok {
				continue
			}
			var m map[string]any
			if json.Unmarshal([]byte(raw), &m) != nil {
				continue
			}
			for k, v := range m {
				details[k] = v
			}
		}
	}
	return details
}
