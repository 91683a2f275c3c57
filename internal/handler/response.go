package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

type Response struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Code      apperrors.ErrorCode    `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Data      interface{}            `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ErrorResponseFor maps err onto an HTTP status and body. Errors that are not
// AppErrors are reported as 500 without their text.
func ErrorResponseFor(err error) (int, *Response) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError, NewErrorResponse("internal server error")
	}

	resp := NewErrorResponse(appErr.Message)
	resp.Code = appErr.Code
	resp.Details = appErr.Details
	resp.Retryable = appErr.Retryable()

	var verrs validator.ValidationErrors
	if appErr.Code == apperrors.ErrBadRequest && errors.As(appErr.Err, &verrs) {
		fields := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		resp.Details = map[string]interface{}{"fields": fields}
	}
	return appErr.StatusCode(), resp
}
