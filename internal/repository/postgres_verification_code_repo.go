package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ayaka/famauth/internal/model"
)

// PostgresVerificationCodeRepo はPostgreSQLを使用した確認コードリポジトリ。
type PostgresVerificationCodeRepo struct {
	db *sql.DB
}

// NewPostgresVerificationCodeRepo はPostgresVerificationCodeRepoを生成する。
func NewPostgresVerificationCodeRepo(db *sql.DB) *PostgresVerificationCodeRepo {
	return &PostgresVerificationCodeRepo{db: db}
}

// Create は確認コード行を追加する。
// 同一メールアドレスの既存行には触れない（追記専用）。
func (r *PostgresVerificationCodeRepo) Create(ctx context.Context, code *model.VerificationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_verification_codes (id, email, code, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		code.ID, code.Email, code.Code, code.CreatedAt, code.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification code: %w", err)
	}

	return nil
}

// FindLatestValid はemailとcodeが一致する未期限切れの行のうち最新のものを返す。
// 見つからない場合はnilを返す。
func (r *PostgresVerificationCodeRepo) FindLatestValid(ctx context.Context, email, code string, now time.Time) (*model.VerificationCode, error) {
	vc := &model.VerificationCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, code, created_at, expires_at
		 FROM email_verification_codes
		 WHERE email = $1 AND code = $2 AND expires_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		email, code, now,
	).Scan(&vc.ID, &vc.Email, &vc.Code, &vc.CreatedAt, &vc.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification code: %w", err)
	}

	return vc, nil
}

// DeleteByID は指定IDの行を削除し、実際に削除できたかを返す。
// 0行の削除はエラーではなくfalseで報告する。同一コードへの並行validateでは
// 行を削除できた呼び出しだけがtrueを受け取る。
func (r *PostgresVerificationCodeRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM email_verification_codes WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete verification code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ VerificationCodeRepository = (*PostgresVerificationCodeRepo)(nil)
