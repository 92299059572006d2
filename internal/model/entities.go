// Package model はドメインモデルを定義する。
package model

import (
	"database/sql"
	"time"
)

// AuthUser は外部IDプロバイダが保持する認証アカウントを表す。
// パスワードはプロバイダ側にのみ存在し、このシステムでは一切読み出さない。
type AuthUser struct {
	ID             string
	Email          string
	Name           string // user_metadata.name
	Role           string // user_metadata.role
	EmailConfirmed bool
}

// Profile はアプリケーション側のユーザー行を表す。
// AuthUserの作成後、DBトリガーによって非同期に作成される。
// AuthUser 1件につきProfileは最終的に1件存在する。
type Profile struct {
	ID        string
	AuthID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dependent は保護者に属する子どもレコードを表す。
// LoginUserIDはログインアカウントが発行されるまでNULL。
type Dependent struct {
	ID          string
	ParentID    string
	Name        string
	LoginUserID sql.NullString
	CreatedAt   time.Time
}

// VerificationCode はメールアドレス確認用のワンタイムコードを表す。
// 同一メールアドレスに対して複数の行が同時に有効であり得る（追記専用）。
// 状態遷移は Issued → Consumed（validate成功時の行削除）または
// Issued → Expired（expires_at経過、行は残る）のみ。
type VerificationCode struct {
	ID        string
	Email     string
	Code      string // 6桁の数字
	CreatedAt time.Time
	ExpiresAt time.Time
}
