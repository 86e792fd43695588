package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrorResponse 标准错误响应结构
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONResponse 写入JSON响应
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusOK, data)
}

// WriteCreatedResponse 写入创建成功响应
func WriteCreatedResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusCreated, data)
}

// WriteErrorResponse 写入错误响应
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message, details string) {
	WriteJSONResponse(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}

// WriteBadRequestResponse 写入400错误响应
func WriteBadRequestResponse(w http.ResponseWriter, message, details string) {
	WriteErrorResponse(w, http.StatusBadRequest, message, details)
}

// WriteUnauthorizedResponse 写入401错误响应
func WriteUnauthorizedResponse(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusUnauthorized, message, "")
}

// WriteNotFoundResponse 写入404错误响应
func WriteNotFoundResponse(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusNotFound, message, "")
}

// WriteMethodNotAllowedResponse 写入405错误响应
func WriteMethodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed",
		fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
}

// WriteInternalServerErrorResponse 写入500错误响应
func WriteInternalServerErrorResponse(w http.ResponseWriter, message, details string) {
	WriteErrorResponse(w, http.StatusInternalServerError, message, details)
}

// WriteErrorFromErr 根据错误类型写入对应状态码的响应
func WriteErrorFromErr(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		WriteBadRequestResponse(w, "Validation failed", verr.Error())
	case errors.Is(err, ErrValidation):
		WriteBadRequestResponse(w, "Validation failed", err.Error())
	case errors.Is(err, ErrNotFound):
		WriteNotFoundResponse(w, err.Error())
	case errors.Is(err, ErrUnauthorized):
		WriteUnauthorizedResponse(w, err.Error())
	default:
		WriteInternalServerErrorResponse(w, "Internal server error", err.Error())
	}
}

// ParseJSONBody 解析JSON请求体
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ValidationError{Field: "body", Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}
