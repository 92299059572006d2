// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ayaka/famauth/internal/middleware"
	"github.com/ayaka/famauth/internal/model"
)

// OwnershipGate は保護者の解決と子どもの所有確認に必要なインターフェース。
// gate.Serviceの部分集合として定義する。
type OwnershipGate interface {
	// ResolveOwnerProfile は呼び出し元のプロフィール行を解決する。
	ResolveOwnerProfile(ctx context.Context, caller *model.AuthUser) (*model.Profile, error)
	// VerifyOwnership は対象の子どもが呼び出し元の管理下にあることを確認する。
	VerifyOwnership(ctx context.Context, profile *model.Profile, dependentID string) (*model.Dependent, error)
}

// Provisioner は子どもアカウントのプロビジョニングに必要なインターフェース。
// account.Serviceの部分集合として定義する。
type Provisioner interface {
	// Provision は子どものログインアカウントを作成し、子ども行に紐付ける。
	Provision(ctx context.Context, dep *model.Dependent, email, password string) (string, error)
}

// AccountHandler は子どもアカウント作成のHTTPハンドラー。
type AccountHandler struct {
	gate        OwnershipGate
	provisioner Provisioner
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(gate OwnershipGate, provisioner Provisioner) *AccountHandler {
	return &AccountHandler{
		gate:        gate,
		provisioner: provisioner,
	}
}

// createDependentAccountRequest は子どもアカウント作成リクエストのボディ。
type createDependentAccountRequest struct {
	DependentID string `json:"dependentId"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// createDependentAccountResponse は子どもアカウント作成のAPIレスポンス。
// 作成したアカウントのメールアドレスのみを返す。パスワードは返さない。
type createDependentAccountResponse struct {
	Email string `json:"email"`
}

// CreateDependentAccount は子どもアカウント作成を処理する。
// POST /create-dependent-account
//
// 処理順序: 入力検証 → 保護者プロフィール解決 → 所有確認 → プロビジョニング。
// 所有確認より前にプロビジョニングの副作用は一切発生しない。
func (h *AccountHandler) CreateDependentAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.AuthUserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createDependentAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	if req.DependentID == "" || req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("dependentId、email、passwordは必須です。"))
		return
	}

	profile, err := h.gate.ResolveOwnerProfile(r.Context(), caller)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dep, err := h.gate.VerifyOwnership(r.Context(), profile, req.DependentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	email, err := h.provisioner.Provision(r.Context(), dep, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(createDependentAccountResponse{Email: email})
}
