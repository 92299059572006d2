// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/ayaka/famauth/internal/model"
)

// ProfileRepository はプロフィール行（usersテーブル）の読み取りインターフェース。
// 行の作成はIDプロバイダ側の同期トリガーが担うため、作成メソッドは持たない。
type ProfileRepository interface {
	// FindByAuthID は外部IDプロバイダのアカウントIDでプロフィールを検索する。
	// 見つからない場合はnilを返す。
	FindByAuthID(ctx context.Context, authID string) (*model.Profile, error)
}

// DependentRepository は子どもレコード（childrenテーブル）の永続化インターフェース。
type DependentRepository interface {
	// FindByID は指定IDの子どもレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Dependent, error)

	// UpdateLoginUserID は子どもレコードのlogin_user_idを更新する。
	// 更新は子どもレコード自身のIDでフィルタする。
	UpdateLoginUserID(ctx context.Context, id, loginUserID string) error
}

// VerificationCodeRepository は確認コード行の永続化インターフェース。
type VerificationCodeRepository interface {
	// Create は確認コード行を追加する。既存の行は無効化しない（追記専用）。
	Create(ctx context.Context, code *model.VerificationCode) error

	// FindLatestValid はemailとcodeが一致し、expires_atがnowより後の行のうち
	// created_atが最新のものを返す。見つからない場合はnilを返す。
	FindLatestValid(ctx context.Context, email, code string, now time.Time) (*model.VerificationCode, error)

	// DeleteByID は指定IDの行を削除する（コードの消費）。
	// 戻り値は実際に行を削除できたかどうか。falseは他の呼び出しが
	// 先に消費済みであることを意味する。
	// 単一行のDELETEであり、同一コードへの並行validateはこの原子性で解決される。
	DeleteByID(ctx context.Context, id string) (bool, error)
}
