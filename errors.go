package opensea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kaifufi/opensea-sdk-go/chain"
)

var (
	// ErrInvalidParam represents an invalid parameter error
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrOpenAPI represents an error returned by the orderbook API
	ErrOpenAPI = errors.New("openapi error")

	// ErrInvalidAuctionWindow is returned when a Dutch auction's expiration
	// time is not after its listing time
	ErrInvalidAuctionWindow = errors.New("invalid auction window")

	// ErrOrderNotFound is returned when no order matches a query
	ErrOrderNotFound = errors.New("order not found")

	// ErrRPCNotConfigured is returned by chain operations on a client
	// created without an RPC URL
	ErrRPCNotConfigured = errors.New("rpc url not configured")

	// ErrInvalidSignature is returned when signature bytes match neither layout
	ErrInvalidSignature = chain.ErrInvalidSignature

	// ErrTransactionFailed is returned when a mined transaction reverted
	ErrTransactionFailed = chain.ErrTransactionFailed
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
	Fields  []string
}

func (e *InvalidParamError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func (e *InvalidParamError) Unwrap() error {
	return ErrInvalidParam
}

// OpenAPIError represents an error response from the orderbook API
type OpenAPIError struct {
	StatusCode int
	Message    string
}

func (e *OpenAPIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (e *OpenAPIError) Unwrap() error {
	return ErrOpenAPI
}

func missingFieldsError(fields []string) error {
	return &InvalidParamError{
		Message: "missing required fields",
		Fields:  fields,
	}
}
