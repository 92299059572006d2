// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayaka/famauth/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authUserContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var authUserContextKey = contextKey("auth_user")

// CallerVerifier はBearerトークンから呼び出し元を特定するインターフェース。
// gate.Serviceの部分集合として定義する。
type CallerVerifier interface {
	VerifyCaller(ctx context.Context, token string) (*model.AuthUser, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを認可ゲートで
// 検証するミドルウェアを返す。
// 認証済みユーザーをリクエストコンテキストに注入する。
// トークンの欠落・不正・期限切れの区別はゲート側が畳み込み、いずれも
// 同一の401レスポンスになる。検証はいかなる副作用も持たない。
func NewAuthMiddleware(verifier CallerVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// ヘッダー欠落・形式不正は空トークンとしてゲートに渡す
			token := extractBearerToken(r)

			caller, err := verifier.VerifyCaller(r.Context(), token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := ContextWithAuthUser(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// 形式が不正な場合は空文字を返す。
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthUserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func AuthUserFromContext(ctx context.Context) (*model.AuthUser, error) {
	caller, ok := ctx.Value(authUserContextKey).(*model.AuthUser)
	if !ok || caller == nil {
		return nil, fmt.Errorf("auth user not found in context")
	}
	return caller, nil
}

// ContextWithAuthUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAuthUser(ctx context.Context, caller *model.AuthUser) context.Context {
	return context.WithValue(ctx, authUserContextKey, caller)
}
