package server

import "github.com/Sternrassler/zotero-mcp/pkg/zotero"

// Envelope is the uniform tool result. Exactly one of Data and Error is
// set; OK mirrors which. Both keys are always serialized so clients can
// branch without probing for presence.
type Envelope struct {
	OK    bool         `json:"ok"`
	Data  any          `json:"data"`
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail is the wire form of a classified failure.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func okEnvelope(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

// errEnvelope converts a classified error. Details is never null on the
// wire; an absent bag serializes as {}.
func errEnvelope(apiErr *zotero.APIError) Envelope {
	details := apiErr.Details
	if details == nil {
		details = map[string]any{}
	}
	return Envelope{
		OK: false,
		Error: &ErrorDetail{
			Code:    string(apiErr.Code),
			Message: apiErr.Message,
			Details: details,
		},
	}
}
