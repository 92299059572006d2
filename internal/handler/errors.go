package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayaka/famauth/internal/middleware"
	"github.com/ayaka/famauth/internal/model"
)

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外の想定外エラーは原因の文字列表現とともに500で返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w, err.Error())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeProfileMissing, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeValidation, model.ErrCodeCodeNotFoundOrExpired:
		return http.StatusBadRequest
	case model.ErrCodeUpstreamFailure, model.ErrCodeIntegrityGap:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
