package common

import (
	"errors"
	"fmt"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError carrying the same code, so sentinels like
// ErrUnauthorized work with errors.Is through arbitrary wrapping.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// 错误码常量
const (
	ErrCodeGitHubAPI             = "GITHUB_API_ERROR"
	ErrCodeGitLabAPI             = "GITLAB_API_ERROR"
	ErrCodeDatabase              = "DATABASE_ERROR"
	ErrCodeLLM                   = "LLM_ERROR"
	ErrCodeLLMParse              = "LLM_PARSE_FAILED"
	ErrCodeInvalidClassification = "INVALID_CLASSIFICATION"
	ErrCodeNotification          = "NOTIFICATION_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeConfig                = "CONFIG_ERROR"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks.
var (
	ErrUnauthorized          = NewError(ErrCodeUnauthorized, "authentication failed")
	ErrLLMParse              = NewError(ErrCodeLLMParse, "unparseable LLM response")
	ErrInvalidClassification = NewError(ErrCodeInvalidClassification, "invalid classification")
	ErrInvalidInput          = NewError(ErrCodeInvalidInput, "invalid input")
)
