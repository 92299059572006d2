package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayaka/famauth/internal/model"
	"github.com/ayaka/famauth/internal/repository"
)

// Validator は確認コードの検証と消費を担う。
type Validator struct {
	codeRepo repository.VerificationCodeRepository
	metrics  MetricsRecorder
}

// NewValidator はValidatorを生成する。
func NewValidator(codeRepo repository.VerificationCodeRepository, metrics MetricsRecorder) *Validator {
	return &Validator{
		codeRepo: codeRepo,
		metrics:  metrics,
	}
}

// Validate は提出されたコードを検証し、一致した行を消費する。
//
//   - 形式チェック（6桁の数字）はデータストアへのアクセスより前に行い、
//     不正な形式はValidationErrorで即座に拒否する。
//   - 一致判定は「emailとcodeが一致し、期限内」の行のうち最新のもの。
//   - 不一致・期限切れ・未発行は同一のNotFoundOrExpiredを返す。どの失敗かを
//     区別しないのは列挙攻撃への対策であり、分離してはならない。
//   - 一致時は該当行を削除してから成功を返す。削除が消費のステップであり、
//     これを最後に行うことで同一コードの再利用を防ぐ。
func (v *Validator) Validate(ctx context.Context, email, submitted string) error {
	if !isSixDigits(submitted) {
		return model.NewValidationError("コードは6桁の数字で入力してください。")
	}

	if email == "" {
		return model.NewUnauthenticatedError()
	}

	row, err := v.codeRepo.FindLatestValid(ctx, email, submitted, time.Now())
	if err != nil {
		// データストアの失敗も不一致と同じレスポンスに畳み込む。
		// 詳細はログにのみ残す。
		slog.Error("failed to look up verification code",
			slog.String("error", err.Error()),
		)
		v.metrics.RecordCodeRejected()
		return model.NewCodeNotFoundOrExpiredError()
	}
	if row == nil {
		v.metrics.RecordCodeRejected()
		return model.NewCodeNotFoundOrExpiredError()
	}

	// 消費: 単一行の削除。DELETEの原子性により行を削除できるのは1つの
	// 呼び出しだけであり、同一コードで並行してvalidateしても成功を観測
	// できるのは高々1つ。削除できなかった側は不一致と同じ応答に畳み込む。
	deleted, err := v.codeRepo.DeleteByID(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	if !deleted {
		v.metrics.RecordCodeRejected()
		return model.NewCodeNotFoundOrExpiredError()
	}

	v.metrics.RecordCodeConsumed()
	slog.Info("verification code consumed",
		slog.String("code_id", row.ID),
	)

	return nil
}

// isSixDigits はsが正確に6文字の10進数字であるかを判定する。
func isSixDigits(s string) bool {
	if len(s) != codeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
