package domain

import (
	"errors"
	"strconv"
)

var (
	// Batch integrity errors
	ErrAccountNotResolved         = errors.New("position account could not be resolved")
	ErrSettlementModelNotFound    = errors.New("no settlement model for currency and no default")
	ErrSettlementAccountNotFound  = errors.New("settlement account not found for participant")
	ErrPositionNotFound           = errors.New("participant position not found")
	ErrLimitNotFound              = errors.New("net debit cap limit not found")
	ErrBatchSizeOutOfRange        = errors.New("batch size out of range")
	ErrInvalidTransferID          = errors.New("transfer id is not a valid uuid or ulid")
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrMissingRoutingKey          = errors.New("message has no routing key")
	ErrUnsupportedPayloadEncoding = errors.New("unsupported payload encoding")
	ErrUnknownAction              = errors.New("unknown position action")
)

// APIError is a coded business failure reported back to a participant.
type APIError struct {
	Code        int
	Description string
}

func (e APIError) Error() string {
	return strconv.Itoa(e.Code) + ": " + e.Description
}

// Interoperability error codes used by the prepare flow.
var (
	APIErrorInternalServer         = APIError{Code: 2001, Description: "Internal server error"}
	APIErrorPayerInsufficientFunds = APIError{Code: 4001, Description: "Payer FSP insufficient liquidity"}
	APIErrorValidation             = APIError{Code: 3100, Description: "Generic validation error"}
)

// NewValidationAPIError reports a request that parsed but failed validation.
func NewValidationAPIError(err error) APIError {
	e := APIErrorValidation
	if err != nil {
		e.Description += " - " + err.Error()
	}
	return e
}

// ErrorInformation is the wire body of a failure notification.
type ErrorInformation struct {
	ErrorInformation struct {
		ErrorCode        string `json:"errorCode"`
		ErrorDescription string `json:"errorDescription"`
	} `json:"errorInformation"`
}

// NewErrorInformation converts an APIError into its wire body.
func NewErrorInformation(e APIError) ErrorInformation {
	var info ErrorInformation
	info.ErrorInformation.ErrorCode = strconv.Itoa(e.Code)
	info.ErrorInformation.ErrorDescription = e.Description
	return info
}
