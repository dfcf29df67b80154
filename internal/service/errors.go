package service

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource RepoType, id string, err error) *BusinessError {
	busErr := NewBusinessError(CodeNotFound,
		fmt.Sprintf("task %s not found", id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
	busErr.Err = err
	return busErr
}

// NewInvalidArgument - ошибка входных данных; Message возвращается клиенту без изменений
func NewInvalidArgument(field, message string) *BusinessError {
	return NewBusinessError(CodeInvalidArgument, message, ToDetail("field", field))
}

func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

func hasCode(err error, code string) bool {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr.Code == code
	}
	return false
}
