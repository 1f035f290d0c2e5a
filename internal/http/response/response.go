// Package response формирует JSON-ответы REST-слоя и единый конверт ошибок.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Коды ошибок в конверте.
const (
	CodeNotFound           = "not_found"
	CodeIntegrityViolation = "integrity_violation"
	CodeInvalidArgument    = "invalid_argument"
	CodeStateConflict      = "state_conflict"
	CodeInternal           = "internal"
)

// ErrorEnvelope: тело любого ответа с ошибкой, {"error":{"code","message"}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK отвечает 200 с payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Created отвечает 201 с созданной сущностью.
func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: ErrorBody{Code: code, Message: message}})
}

// Classify сопоставляет ошибку сервиса HTTP-статусу и коду конверта.
func Classify(err error) (int, string) {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case domain.IsIntegrityViolation(err):
		return http.StatusConflict, CodeIntegrityViolation
	case domain.IsValidation(err):
		return http.StatusBadRequest, CodeInvalidArgument
	case domain.IsStateConflict(err):
		return http.StatusConflict, CodeStateConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// FromError отвечает ошибкой сервиса. Текст внутренних ошибок наружу не уходит,
// его пишет в лог middleware по c.Errors.
func FromError(c *gin.Context, err error) {
	status, code := Classify(err)
	_ = c.Error(err)

	message := http.StatusText(status)
	if code != CodeInternal {
		message = err.Error()
	}
	abort(c, status, code, message)
}

// BadRequest отвечает 400 на некорректные параметры запроса.
func BadRequest(c *gin.Context, err error) {
	message := "invalid request"
	if err != nil {
		message = err.Error()
	}
	abort(c, http.StatusBadRequest, CodeInvalidArgument, message)
}
