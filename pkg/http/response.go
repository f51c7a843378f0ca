package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes API response with status and data. Unlike a
// status-in-body-only envelope, the HTTP status code matches the payload so
// plain clients and load balancers see failures as failures.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// ErrorEnvelopeResponse writes the flat {error} envelope with the given status.
func ErrorEnvelopeResponse(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, ErrorResponse{Status: statusCode, Error: message})
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return ErrorEnvelopeResponse(c, http.StatusInternalServerError, "something went wrong")
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorEnvelopeResponse(c, appErr.Status, appErr.Message)
	}
	return InternalServerErrorResponse(c)
}
