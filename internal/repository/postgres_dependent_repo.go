package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ayaka/famauth/internal/model"
)

// PostgresDependentRepo はPostgreSQLを使用した子どもレコードリポジトリ。
type PostgresDependentRepo struct {
	db *sql.DB
}

// NewPostgresDependentRepo はPostgresDependentRepoを生成する。
func NewPostgresDependentRepo(db *sql.DB) *PostgresDependentRepo {
	return &PostgresDependentRepo{db: db}
}

// FindByID は指定IDの子どもレコードを取得する。見つからない場合はnilを返す。
func (r *PostgresDependentRepo) FindByID(ctx context.Context, id string) (*model.Dependent, error) {
	dep := &model.Dependent{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, parent_id, name, login_user_id, created_at FROM children WHERE id = $1`,
		id,
	).Scan(&dep.ID, &dep.ParentID, &dep.Name, &dep.LoginUserID, &dep.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dependent by ID: %w", err)
	}

	return dep, nil
}

// UpdateLoginUserID は子どもレコードのlogin_user_idを更新する。
// 対象行が存在しない場合はエラーを返す。
func (r *PostgresDependentRepo) UpdateLoginUserID(ctx context.Context, id, loginUserID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE children SET login_user_id = $1 WHERE id = $2`,
		loginUserID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update login user ID: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("dependent not found: %s", id)
	}

	return nil
}

// compile-time interface check
var _ DependentRepository = (*PostgresDependentRepo)(nil)
