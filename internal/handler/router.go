package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ayaka/famauth/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CallerVerifier    middleware.CallerVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusObserver    middleware.StatusObserver

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// アカウント作成
	Gate        OwnershipGate
	Provisioner Provisioner

	// 確認コード
	Issuer    CodeIssuer
	Validator CodeValidator
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// 運用エンドポイント（/health、/metrics）は認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// CORSミドルウェアを全ルートに適用。プリフライトもここで応答する
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusObserver))
	}

	accountHandler := NewAccountHandler(deps.Gate, deps.Provisioner)
	verificationHandler := NewVerificationHandler(deps.Issuer, deps.Validator)

	// --- 運用エンドポイント（認証不要） ---

	r.Get("/health", healthHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.CallerVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/create-dependent-account", accountHandler.CreateDependentAccount)

		// コード送信はメール配信コストを伴うため送信専用レート制限を追加
		r.With(deps.RateLimiter.SendCodeMiddleware()).
			Post("/send-signup-verification-code", verificationHandler.SendCode)

		r.Post("/verify-signup-code", verificationHandler.VerifyCode)
	})

	return r
}

// healthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
