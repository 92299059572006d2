package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ayaka/famauth/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByAuthID は外部IDプロバイダのアカウントIDでプロフィールを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByAuthID(ctx context.Context, authID string) (*model.Profile, error) {
	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, auth_id, name, created_at, updated_at FROM users WHERE auth_id = $1`,
		authID,
	).Scan(&profile.ID, &profile.AuthID, &profile.Name, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by auth ID: %w", err)
	}

	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
