package zotero

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a request.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorCode classifies a failed Zotero operation. The set is closed; callers
// can branch on codes without parsing messages.
type ErrorCode string

const (
	// ErrorCodeAuth covers 401 and 403 responses.
	ErrorCodeAuth ErrorCode = "AUTH"

	// ErrorCodeNotFound covers 404 responses.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeRateLimited covers 429 responses.
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"

	// ErrorCodeValidation covers requests Zotero rejected as malformed, plus
	// locally rejected inputs that never reach the wire.
	ErrorCodeValidation ErrorCode = "VALIDATION"

	// ErrorCodeUpstream covers 5xx responses, network failures, and
	// malformed upstream payloads.
	ErrorCodeUpstream ErrorCode = "UPSTREAM"

	// ErrorCodeAmbiguousCollection signals a collection name that matched
	// more than one collection.
	ErrorCodeAmbiguousCollection ErrorCode = "AMBIGUOUS_COLLECTION"
)

// APIError is a classified Zotero failure with caller-facing context.
type APIError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zotero %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("zotero %s: %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a VALIDATION error for inputs rejected before
// any request is sent.
func NewValidationError(message string, details map[string]any) *APIError {
	return &APIError{Code: ErrorCodeValidation, Message: message, Details: details}
}

// NewUpstreamError builds an UPSTREAM error for malformed or incomplete
// upstream responses.
func NewUpstreamError(message string, details map[string]any) *APIError {
	return &APIError{Code: ErrorCodeUpstream, Message: message, Details: details}
}

// AsAPIError unwraps err to an APIError if one is in its chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == code
}

// validationStatuses are the client-error statuses reported as VALIDATION.
// Remaining 4xx statuses fall through to UPSTREAM.
var validationStatuses = map[int]bool{
	400: true,
	409: true,
	412: true,
	413: true,
	415: true,
	422: true,
}

// classifyStatus maps an HTTP status to its taxonomy code and message.
func classifyStatus(status int) (ErrorCode, string) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorCodeAuth, "Zotero authentication failed."
	case status == http.StatusNotFound:
		return ErrorCodeNotFound, "Zotero resource not found."
	case status == http.StatusTooManyRequests:
		return ErrorCodeRateLimited, "Zotero rate limit exceeded."
	case validationStatuses[status]:
		return ErrorCodeValidation, "Zotero rejected the request."
	case status >= 500 && status <= 599:
		return ErrorCodeUpstream, "Zotero service error."
	default:
		return ErrorCodeUpstream, "Zotero request failed."
	}
}

// retryableStatus reports whether a status is worth retrying. Client errors
// never are; only rate limiting and server errors resolve on their own.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// maxDetailBodyLen caps response body excerpts carried in error details.
const maxDetailBodyLen = 500

// errorDetails assembles the diagnostic bag attached to classified errors.
func errorDetails(resp *http.Response, body []byte) map[string]any {
	details := map[string]any{"status": resp.StatusCode}

	if excerpt := strings.TrimSpace(string(body)); excerpt != "" {
		if len(excerpt) > maxDetailBodyLen {
			excerpt = excerpt[:maxDetailBodyLen]
		}
		details["body"] = excerpt
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		details["retry_after"] = retryAfter
	}

	requestID := resp.Header.Get("X-Zotero-RequestID")
	if requestID == "" {
		requestID = resp.Header.Get("X-Zotero-Request-Id")
	}
	if requestID != "" {
		details["request_id"] = requestID
	}

	return details
}

// statusError classifies an HTTP error response into an APIError.
func statusError(resp *http.Response, body []byte) *APIError {
	code, message := classifyStatus(resp.StatusCode)
	return &APIError{
		Code:    code,
		Message: message,
		Details: errorDetails(resp, body),
	}
}
