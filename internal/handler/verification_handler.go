package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ayaka/famauth/internal/middleware"
	"github.com/ayaka/famauth/internal/model"
)

// CodeIssuer は確認コードの発行に必要なインターフェース。
// verification.Issuerの部分集合として定義する。
type CodeIssuer interface {
	// Issue は呼び出し元のメールアドレス宛に新しい確認コードを発行する。
	Issue(ctx context.Context, caller *model.AuthUser, displayName string) error
}

// CodeValidator は確認コードの照合に必要なインターフェース。
// verification.Validatorの部分集合として定義する。
type CodeValidator interface {
	// Validate は提出されたコードを照合し、一致した場合に消費する。
	Validate(ctx context.Context, email, submitted string) error
}

// VerificationHandler は確認コードのライフサイクルを扱うHTTPハンドラー。
type VerificationHandler struct {
	issuer    CodeIssuer
	validator CodeValidator
}

// NewVerificationHandler はVerificationHandlerを生成する。
func NewVerificationHandler(issuer CodeIssuer, validator CodeValidator) *VerificationHandler {
	return &VerificationHandler{
		issuer:    issuer,
		validator: validator,
	}
}

// sendCodeRequest はコード送信リクエストのボディ。
// userNameは任意で、メール本文の宛名にのみ使用する。
type sendCodeRequest struct {
	UserName string `json:"userName"`
}

// verifyCodeRequest はコード照合リクエストのボディ。
type verifyCodeRequest struct {
	Code string `json:"code"`
}

// okResponse は成功レスポンスの共通フォーマット。
type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// SendCode は確認コードの発行とメール送信を処理する。
// POST /send-signup-verification-code
//
// コード自体はレスポンスに含めない。メールでのみ届く。
func (h *VerificationHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.AuthUserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	// ボディは任意。空ボディも許容する。
	var req sendCodeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.issuer.Issue(r.Context(), caller, req.UserName); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(okResponse{
		OK:      true,
		Message: "確認コードを送信しました。",
	})
}

// VerifyCode は確認コードの照合を処理する。
// POST /verify-signup-code
func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.AuthUserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	if err := h.validator.Validate(r.Context(), caller.Email, req.Code); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(okResponse{
		OK:      true,
		Message: "確認が完了しました。",
	})
}
