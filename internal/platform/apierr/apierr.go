package apierr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Code string

const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeConflict           Code = "CONFLICT" // ID 重複・メール重複
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeNoActiveBorrow     Code = "NO_ACTIVE_BORROW"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeContention         Code = "CONTENTION" // 再試行で通る可能性あり
	CodeInternal           Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Invalid(msg string) *APIError        { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func Conflict(msg string) *APIError       { return &APIError{Code: CodeConflict, Message: msg} }
func Unavailable(msg string) *APIError    { return &APIError{Code: CodeUnavailable, Message: msg} }
func NoActiveBorrow(msg string) *APIError { return &APIError{Code: CodeNoActiveBorrow, Message: msg} }
func InvalidCredentials(msg string) *APIError {
	return &APIError{Code: CodeInvalidCredentials, Message: msg}
}
func InvalidToken(msg string) *APIError { return &APIError{Code: CodeInvalidToken, Message: msg} }
func Forbidden(msg string) *APIError    { return &APIError{Code: CodeForbidden, Message: msg} }
func NotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func Contention(msg string) *APIError   { return &APIError{Code: CodeContention, Message: msg} }

// Is reports whether err carries an APIError with the given code.
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeConflict, CodeUnavailable, CodeNoActiveBorrow:
			return http.StatusBadRequest
		case CodeInvalidCredentials, CodeInvalidToken:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeContention:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// FromErr は APIError ならそのまま、それ以外は中身を伏せて INTERNAL にする
func FromErr(err error) errorDTO {
	var api *APIError
	if errors.As(err, &api) && api.Code != CodeInternal {
		return Body(api.Code, api.Message)
	}
	log.Printf("[ERROR] %v", err)
	return Body(CodeInternal, "internal server error")
}

// Abort writes the error body with its status and stops the handler chain.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(ToHTTPStatus(err), FromErr(err))
}
