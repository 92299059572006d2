// Package verification はメールアドレス確認コードの発行と検証を提供する。
//
// コードのライフサイクルは Issued → {Consumed | Expired} の2遷移のみ。
// Consumedへはvalidate成功時の行削除で遷移する。Expiredは時間経過による
// 暗黙の遷移で、行は削除されずに残る（期限切れ行の掃除は保持期間バッチの責務）。
package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/ayaka/famauth/internal/mailer"
	"github.com/ayaka/famauth/internal/model"
	"github.com/ayaka/famauth/internal/repository"
)

// codeLength は確認コードの桁数。
const codeLength = 6

// MetricsRecorder は確認コードの発行・消費結果の記録インターフェース。
type MetricsRecorder interface {
	RecordCodeIssued()
	RecordCodeConsumed()
	RecordCodeRejected()
	RecordMailSendLatency(d time.Duration)
}

// Issuer は確認コードの発行を担う。
type Issuer struct {
	codeRepo repository.VerificationCodeRepository
	mail     mailer.Sender
	metrics  MetricsRecorder
	ttl      time.Duration
}

// NewIssuer はIssuerを生成する。
func NewIssuer(
	codeRepo repository.VerificationCodeRepository,
	mail mailer.Sender,
	metrics MetricsRecorder,
	ttl time.Duration,
) *Issuer {
	return &Issuer{
		codeRepo: codeRepo,
		mail:     mail,
		metrics:  metrics,
		ttl:      ttl,
	}
}

// Issue は新しい確認コードを発行し、メールで送付する。
//
//   - コードは[100000, 999999]から一様に抽選した6桁の数字。
//   - 行は追記専用で保存され、同一メールアドレスの既存コードは無効化しない。
//     複数のコードが同時に有効であり得る。
//   - メール送信失敗はUpstreamFailureとして返すが、保存済みのコード行は
//     ロールバックしない。
//   - コード自体は戻り値にもレスポンスにも含めない。
func (i *Issuer) Issue(ctx context.Context, caller *model.AuthUser, displayName string) error {
	if caller.Email == "" {
		return model.NewUnauthenticatedError()
	}

	if displayName == "" {
		displayName = caller.Name
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := time.Now()
	row := &model.VerificationCode{
		ID:        uuid.New().String(),
		Email:     caller.Email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl),
	}

	if err := i.codeRepo.Create(ctx, row); err != nil {
		return model.NewUpstreamFailureError(err.Error())
	}

	sendStart := time.Now()
	err = i.mail.Send(ctx, mailer.SendRequest{
		Email:       caller.Email,
		DisplayName: displayName,
		Code:        code,
	})
	i.metrics.RecordMailSendLatency(time.Since(sendStart))
	if err != nil {
		// 保存済みのコード行はロールバックしない。
		slog.Error("failed to dispatch verification code mail",
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamFailureError(err.Error())
	}

	i.metrics.RecordCodeIssued()
	slog.Info("verification code issued",
		slog.String("code_id", row.ID),
	)

	return nil
}

// generateCode は[100000, 999999]から一様に6桁コードを抽選する。
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
