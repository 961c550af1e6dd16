package api

const (
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeDuplicateName   = "duplicate_name"
	CodeRemote          = "remote_error"
	CodePayloadTooLarge = "payload_too_large"
	CodeInternal        = "internal_error"
)

type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}
