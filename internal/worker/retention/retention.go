// Package retention は確認コードの自動削除ジョブを提供する。
// 確認コード行は照合時の消費でのみ削除されるため、消費されなかった
// 期限切れの行が蓄積する。保持期間（デフォルト14日）を超過した行を
// 日次バッチで削除する。
package retention

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RetentionJob は期限切れ確認コードの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
// 有効期限内の行には決して触れない。照合の「最新優先」の挙動を
// 変えないためである。
type RetentionJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 期限切れコードの保持日数（デフォルト: 14）
}

// NewRetentionJob は新しいRetentionJobを生成する。
// デフォルトの保持日数は14日。
func NewRetentionJob(db Executor, logger *slog.Logger) *RetentionJob {
	return &RetentionJob{
		db:            db,
		logger:        logger,
		RetentionDays: 14,
	}
}

// Run は保持期間を超過した確認コード行を削除する。
// expires_atがRetentionDays日前より古い行をDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *RetentionJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM email_verification_codes WHERE expires_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("確認コードクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("確認コードクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("確認コードクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
