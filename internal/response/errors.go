package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Authentication
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// Authorization
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrCandidateOnly     ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// Validation
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// Session lifecycle
	ErrQuizIDRequired   ErrCode = "QUIZ_ID_REQUIRED"
	ErrQuizEnded        ErrCode = "QUIZ_ENDED"
	ErrQuizUnavailable  ErrCode = "QUIZ_UNAVAILABLE"
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrNotInteractive   ErrCode = "SESSION_NOT_INTERACTIVE"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrSubmitInFlight   ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSubmitFailed     ErrCode = "SUBMIT_FAILED"
	ErrPersistFailed    ErrCode = "PERSIST_FAILED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateOnly:
		return "This resource is restricted to candidates."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrQuizIDRequired:
		return "A quiz id is required to start a session."
	case ErrQuizEnded:
		return "This quiz has already ended."
	case ErrQuizUnavailable:
		return "Error fetching quiz data."
	case ErrSessionNotFound:
		return "No quiz session found. Please start the quiz again."
	case ErrNotInteractive:
		return "The session is not accepting this action right now."
	case ErrUnknownQuestion:
		return "The question index is out of range."
	case ErrAlreadySubmitted:
		return "This quiz has already been submitted."
	case ErrSubmitInFlight:
		return "A submission is already in progress."
	case ErrSubmitFailed:
		return "Failed to submit the quiz. Your answers are saved; please try again."
	case ErrPersistFailed:
		return "Failed to save your answer. Please try again."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
