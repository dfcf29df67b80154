package handlers

import (
	"errors"
	"net/http"

	"taskFocus/internal/logger"
	"taskFocus/internal/service"

	"go.uber.org/zap"
)

// handleBusinessError пишет ответ, если err - бизнес-ошибка, и возвращает true
func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.String("message", businessErr.Message),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
