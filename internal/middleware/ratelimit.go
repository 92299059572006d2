package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	SendCodeRate    rate.Limit    // コード送信のレート（req/sec）。5/60
	SendCodeBurst   int           // コード送信のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/caller、コード送信 5 req/min/caller。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		SendCodeRate:    rate.Limit(5.0 / 60.0), // ~0.083 req/sec
		SendCodeBurst:   5,
		CleanupInterval: 5 * time.Minute,
	}
}

// callerLimiter は呼び出し元ごとのレートリミッターとアクセス時刻を保持する。
type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter は呼び出し元ごとのレート制限を管理する。
// API全般のレート制限とコード送信のレート制限の2種類を提供する。
// コード送信はメール配信コストを伴うため厳しめの上限を別枠で持つ。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*callerLimiter

	sendCodeMu       sync.RWMutex
	sendCodeLimiters map[string]*callerLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:           config,
		generalLimiters:  make(map[string]*callerLimiter),
		sendCodeLimiters: make(map[string]*callerLimiter),
		stopCh:           make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストに認証済みユーザーが含まれている必要がある
// （認証ミドルウェアの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := AuthUserFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateGeneralLimiter(caller.ID)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("auth_id", caller.ID),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SendCodeMiddleware はコード送信専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) SendCodeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := AuthUserFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateSendCodeLimiter(caller.ID)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.SendCodeRate)
				slog.Warn("rate limit exceeded",
					slog.String("auth_id", caller.ID),
					slog.String("limit_type", "send_code"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// SendCodeLimiterCount は現在管理されているコード送信リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) SendCodeLimiterCount() int {
	rl.sendCodeMu.RLock()
	defer rl.sendCodeMu.RUnlock()
	return len(rl.sendCodeLimiters)
}

// getOrCreateGeneralLimiter は呼び出し元のAPI全般リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateGeneralLimiter(authID string) *rate.Limiter {
	rl.generalMu.RLock()
	cl, exists := rl.generalLimiters[authID]
	rl.generalMu.RUnlock()

	if exists {
		rl.generalMu.Lock()
		cl.lastAccess = time.Now()
		rl.generalMu.Unlock()
		return cl.limiter
	}

	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	// ダブルチェック
	if cl, exists := rl.generalLimiters[authID]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst)
	rl.generalLimiters[authID] = &callerLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreateSendCodeLimiter は呼び出し元のコード送信リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateSendCodeLimiter(authID string) *rate.Limiter {
	rl.sendCodeMu.RLock()
	cl, exists := rl.sendCodeLimiters[authID]
	rl.sendCodeMu.RUnlock()

	if exists {
		rl.sendCodeMu.Lock()
		cl.lastAccess = time.Now()
		rl.sendCodeMu.Unlock()
		return cl.limiter
	}

	rl.sendCodeMu.Lock()
	defer rl.sendCodeMu.Unlock()

	// ダブルチェック
	if cl, exists := rl.sendCodeLimiters[authID]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.SendCodeRate, rl.config.SendCodeBurst)
	rl.sendCodeLimiters[authID] = &callerLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for authID, cl := range rl.generalLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.generalLimiters, authID)
		}
	}
	rl.generalMu.Unlock()

	rl.sendCodeMu.Lock()
	for authID, cl := range rl.sendCodeLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.sendCodeLimiters, authID)
		}
	}
	rl.sendCodeMu.Unlock()
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "RATE_LIMIT_EXCEEDED",
		"message":  "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		"category": "system",
		"action":   "指定された時間の経過後に再試行してください。",
	})
}
