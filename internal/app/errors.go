package app

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeInvalidRequest     ErrorCode = "invalid_request"
	CodeNoSlotFound        ErrorCode = "no_slot_found"
	CodeAllAttendeesFailed ErrorCode = "all_attendees_failed"
	CodeServiceUnavailable ErrorCode = "service_unavailable"
	CodeCancelled          ErrorCode = "cancelled"
	CodeInternal           ErrorCode = "internal"
)

var codeStatus = map[ErrorCode]int{
	CodeInvalidRequest:     http.StatusBadRequest,
	CodeNoSlotFound:        http.StatusUnprocessableEntity,
	CodeAllAttendeesFailed: http.StatusBadGateway,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeCancelled:          http.StatusRequestTimeout,
	CodeInternal:           http.StatusInternalServerError,
}

// HTTPStatus maps an error code to its response status.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// SchedulingError is the structured failure returned by the orchestrator.
type SchedulingError struct {
	Code                ErrorCode                  `json:"code"`
	Message             string                     `json:"error"`
	RequestID           string                     `json:"Request_id,omitempty"`
	AvailabilitySummary map[string]AttendeeSummary `json:"availability_summary,omitempty"`
	Err                 error                      `json:"-"`
}

func (e *SchedulingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

func newError(code ErrorCode, requestID, msg string, err error) *SchedulingError {
	return &SchedulingError{Code: code, Message: msg, RequestID: requestID, Err: err}
}

// CodeOf extracts the error code of err, CodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var se *SchedulingError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}
