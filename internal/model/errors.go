// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, provisioning, verification, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated       = "UNAUTHENTICATED"
	ErrCodeProfileMissing        = "PROFILE_MISSING"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUpstreamFailure       = "UPSTREAM_FAILURE"
	ErrCodeIntegrityGap          = "INTEGRITY_GAP"
	ErrCodeCodeNotFoundOrExpired = "CODE_NOT_FOUND_OR_EXPIRED"
)

// NewUnauthenticatedError は未認証エラーを生成する。
// トークン欠落・不正・期限切れのいずれでも同一のエラーを返す。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProfileMissingError は呼び出し元のプロフィール行が存在しない場合のエラーを生成する。
func NewProfileMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileMissing,
		Message:  "保護者のプロフィールが見つかりません。",
		Category: "auth",
		Action:   "アカウント登録が完了しているか確認してください。",
	}
}

// NewForbiddenError は対象リソースへの権限がない場合のエラーを生成する。
// 「存在しない」と「所有していない」を区別しない。存在の有無を
// 非所有者に漏らさないための意図的な仕様であり、分離してはならない。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "対象の子どもが存在しないか、あなたの管理下にありません。",
		Category: "auth",
		Action:   "子どもの一覧を確認してください。",
	}
}

// NewValidationError は入力不正エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUpstreamFailureError は外部コラボレータ（IDプロバイダ・メール送信）の
// 失敗エラーを生成する。メッセージは上流のエラーをそのまま透過する。
func NewUpstreamFailureError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  message,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewIntegrityGapError はプロビジョニングの途中失敗エラーを生成する。
// 作成済みのAuthUserは削除されず孤児として残るため、手動照合のために
// そのIDをメッセージに含める。
func NewIntegrityGapError(orphanAuthID, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeIntegrityGap,
		Message:  fmt.Sprintf("アカウントは作成されましたが紐付けに失敗しました（auth_id: %s）: %s", orphanAuthID, reason),
		Category: "provisioning",
		Action:   "管理者に連絡し、usersテーブルの照合を依頼してください。",
	}
}

// NewCodeNotFoundOrExpiredError は確認コード不一致エラーを生成する。
// 「コードが違う」「期限切れ」「発行されていない」を区別しない。
// どの失敗かを列挙攻撃者に漏らさないための意図的な仕様。
func NewCodeNotFoundOrExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCodeNotFoundOrExpired,
		Message:  "コードが正しくないか、有効期限が切れています。",
		Category: "verification",
		Action:   "コードを再送するか、最新のコードを入力してください。",
	}
}
