// Package sdkerr defines the coded errors shared by the converter and parser,
// plus the response document handed back to callers of the console scripts.
package sdkerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error codes surfaced to callers. The codes are part of the platform contract
// and must not change between releases.
const (
	CodeSource    = "UNPARSEABLE"
	CodeConverter = "NOT_SUPPORT"
	CodeParam     = "PARAM_ERROR"
	CodeParser    = "UNABLE_TO_PARSE"
)

// SDKError is an error carrying one of the platform error codes.
type SDKError struct {
	Code    string
	Message string
}

func (e *SDKError) Error() string {
	return fmt.Sprintf("<%s> %s", e.Code, e.Message)
}

// NewSourceError reports that a source archive is not a valid container.
func NewSourceError(format string, args ...interface{}) error {
	return &SDKError{Code: CodeSource, Message: fmt.Sprintf(format, args...)}
}

// NewConverterError reports a failure while building a format document.
func NewConverterError(format string, args ...interface{}) error {
	return &SDKError{Code: CodeConverter, Message: fmt.Sprintf(format, args...)}
}

// NewParamError reports inconsistent caller-supplied arguments.
func NewParamError(format string, args ...interface{}) error {
	return &SDKError{Code: CodeParam, Message: fmt.Sprintf(format, args...)}
}

// NewParserError reports a failure while parsing a third-party format.
func NewParserError(format string, args ...interface{}) error {
	return &SDKError{Code: CodeParser, Message: fmt.Sprintf(format, args...)}
}

// WrapConverter attaches the converter code to err, keeping its message.
func WrapConverter(err error, msg string) error {
	if err == nil {
		return nil
	}
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return err
	}
	return &SDKError{Code: CodeConverter, Message: fmt.Sprintf("%s: %s", msg, err)}
}

// IsCode reports whether err carries the given platform error code.
func IsCode(err error, code string) bool {
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.Code == code
	}
	return false
}

// Response is the structured result written for the caller of a console
// script: code "OK" with an empty message on success, "failed" plus the
// error text otherwise.
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewResponse builds a Response from the outcome of a conversion run.
func NewResponse(err error) Response {
	if err == nil {
		return Response{Code: "OK"}
	}
	return Response{Code: "failed", Message: err.Error()}
}
