package routes

import (
	"errors"
	"net/http"

	"calendar-service/internal/storage"
	"calendar-service/internal/token"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error    // The underlying error
	StatusCode int      // HTTP status code
	Message    string   // User-friendly message
	StopCodes  []string // Optional stop codes for client-side handling
	Internal   bool     // Whether this is an internal error (hide details from user)
}

// ErrorInfo contains error metadata for user-facing errors
type ErrorInfo struct {
	Message   string   // User-friendly message
	StopCodes []string // Optional stop codes for client-side application
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
		Internal:   statusCode >= 500,
	}
}

var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Authorization errors
	ErrForbidden         = errors.New("forbidden")
	ErrNotContextMember  = errors.New("not a member of the calendar's context")
	ErrProtectedCalendar = errors.New("calendar is protected and cannot be deleted")

	// Validation errors
	ErrInvalidRequest         = errors.New("invalid request")
	ErrMissingParameter       = errors.New("missing required parameter")
	ErrInvalidParameter       = errors.New("invalid parameter")
	ErrInvalidTimeRange       = errors.New("end must be after start")
	ErrInvalidEditMode        = errors.New("editMode must be THIS or SERIES")
	ErrInvalidRecurrenceRule  = errors.New("invalid recurrence rule")
	ErrInvalidRSVPResponse    = errors.New("invalid RSVP response")
	ErrOccurrenceStartMissing = errors.New("occurrenceStartAt is required for editMode=THIS")

	// Not found errors
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrCommentNotFound  = errors.New("comment not found")

	// Conflict errors
	ErrCalendarNotEmpty = errors.New("calendar still contains events")
	ErrStaleVersion     = errors.New("event was modified concurrently")

	// RSVP token errors
	ErrInvalidRSVPToken = errors.New("invalid or expired RSVP token")

	// Rate limiting
	ErrTooManyRequests = errors.New("too many requests")

	// Internal errors
	ErrInternalServer = errors.New("internal server error")
	ErrDatabaseError  = errors.New("database error")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:         http.StatusBadRequest,
	ErrMissingParameter:       http.StatusBadRequest,
	ErrInvalidParameter:       http.StatusBadRequest,
	ErrInvalidTimeRange:       http.StatusBadRequest,
	ErrInvalidEditMode:        http.StatusBadRequest,
	ErrInvalidRecurrenceRule:  http.StatusBadRequest,
	ErrInvalidRSVPResponse:    http.StatusBadRequest,
	ErrOccurrenceStartMissing: http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:        http.StatusUnauthorized,
	ErrInvalidCredentials:  http.StatusUnauthorized,
	token.ErrNonValidToken: http.StatusUnauthorized,
	ErrInvalidRSVPToken:    http.StatusUnauthorized,

	// 403 Forbidden
	ErrForbidden:         http.StatusForbidden,
	ErrNotContextMember:  http.StatusForbidden,
	ErrProtectedCalendar: http.StatusForbidden,

	// 404 Not Found
	ErrCalendarNotFound: http.StatusNotFound,
	ErrEventNotFound:    http.StatusNotFound,
	ErrCommentNotFound:  http.StatusNotFound,
	storage.ErrNotFound: http.StatusNotFound,

	// 409 Conflict
	ErrCalendarNotEmpty:        http.StatusConflict,
	ErrStaleVersion:            http.StatusConflict,
	storage.ErrVersionMismatch: http.StatusConflict,

	// 429 Too Many Requests
	ErrTooManyRequests: http.StatusTooManyRequests,

	// 500 Internal Server Error
	ErrInternalServer: http.StatusInternalServerError,
	ErrDatabaseError:  http.StatusInternalServerError,
}

// errorInfoMap maps errors to user-friendly messages and optional stop codes
var errorInfoMap = map[error]ErrorInfo{
	// Authentication
	ErrUnauthorized: {
		Message:   "Authentication required",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	token.ErrNonValidToken: {
		Message:   "Invalid or expired authentication token",
		StopCodes: []string{"AUTH_INVALID_TOKEN"},
	},
	ErrInvalidCredentials: {
		Message:   "Invalid credentials provided",
		StopCodes: []string{"AUTH_INVALID_CREDENTIALS"},
	},

	// Authorization
	ErrForbidden: {
		Message:   "Access denied",
		StopCodes: []string{"FORBIDDEN"},
	},
	ErrNotContextMember: {
		Message:   "You are not a member of this calendar's context",
		StopCodes: []string{"NOT_CONTEXT_MEMBER"},
	},
	ErrProtectedCalendar: {
		Message:   "System calendars cannot be deleted",
		StopCodes: []string{"PROTECTED_CALENDAR"},
	},

	// Validation
	ErrInvalidRequest: {
		Message:   "Invalid request format",
		StopCodes: []string{"INVALID_REQUEST"},
	},
	ErrMissingParameter: {
		Message:   "Required parameter is missing",
		StopCodes: []string{"MISSING_PARAMETER"},
	},
	ErrInvalidParameter: {
		Message:   "Invalid parameter value",
		StopCodes: []string{"INVALID_PARAMETER"},
	},
	ErrInvalidTimeRange: {
		Message:   "The end of the window must be after its start",
		StopCodes: []string{"INVALID_TIME_RANGE"},
	},
	ErrInvalidEditMode: {
		Message:   "editMode must be THIS or SERIES for recurring events",
		StopCodes: []string{"INVALID_EDIT_MODE"},
	},
	ErrInvalidRecurrenceRule: {
		Message:   "The recurrence rule could not be parsed",
		StopCodes: []string{"INVALID_RECURRENCE_RULE"},
	},
	ErrInvalidRSVPResponse: {
		Message:   "Response must be one of NEEDS_ACTION, ACCEPTED, DECLINED, TENTATIVE",
		StopCodes: []string{"INVALID_RSVP_RESPONSE"},
	},
	ErrOccurrenceStartMissing: {
		Message:   "occurrenceStartAt is required when editing a single occurrence",
		StopCodes: []string{"OCCURRENCE_START_MISSING"},
	},

	// Not found
	ErrCalendarNotFound: {
		Message:   "Calendar not found",
		StopCodes: []string{"CALENDAR_NOT_FOUND"},
	},
	ErrEventNotFound: {
		Message:   "Event not found",
		StopCodes: []string{"EVENT_NOT_FOUND"},
	},
	ErrCommentNotFound: {
		Message:   "Comment not found",
		StopCodes: []string{"COMMENT_NOT_FOUND"},
	},

	// Conflict
	ErrCalendarNotEmpty: {
		Message:   "Calendar still contains events; pass cascade=true to delete them",
		StopCodes: []string{"CALENDAR_NOT_EMPTY"},
	},
	ErrStaleVersion: {
		Message:   "The event was modified by someone else; reload and try again",
		StopCodes: []string{"STALE_VERSION"},
	},
	storage.ErrVersionMismatch: {
		Message:   "The event was modified by someone else; reload and try again",
		StopCodes: []string{"STALE_VERSION"},
	},

	// RSVP
	ErrInvalidRSVPToken: {
		Message:   "This RSVP link is invalid or has expired",
		StopCodes: []string{"RSVP_INVALID_TOKEN"},
	},

	// Rate limiting
	ErrTooManyRequests: {
		Message:   "Too many requests, please try again later",
		StopCodes: []string{"RATE_LIMITED"},
	},

	// Internal (no stop codes for internal errors)
	ErrInternalServer: {
		Message: "An internal error occurred",
	},
	ErrDatabaseError: {
		Message: "Database operation failed",
	},
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	// Check if it's already an HTTPError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	// Check direct match
	if status, ok := errorStatusMap[err]; ok {
		return status
	}

	// Check if error wraps a known error
	for knownErr, status := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return status
		}
	}

	// Default to 500 Internal Server Error
	return http.StatusInternalServerError
}

// GetErrorInfo returns error information including message and stop codes
func GetErrorInfo(err error) ErrorInfo {
	// Check if it's an HTTPError with custom info
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{
			Message:   httpErr.Message,
			StopCodes: httpErr.StopCodes,
		}
	}

	// Check direct match
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Check if error wraps a known error
	for knownErr, info := range errorInfoMap {
		if errors.Is(err, knownErr) {
			return info
		}
	}

	// For unknown errors, return a generic message for 5xx, specific for others
	status := GetErrorStatus(err)
	if status >= 500 {
		return ErrorInfo{Message: "An internal error occurred"}
	}
	return ErrorInfo{Message: err.Error()}
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	return GetErrorInfo(err).Message
}
