// Package account は子どもログインアカウントのプロビジョニングを提供する。
//
// プロビジョニングは「IDプロバイダでアカウント作成 → 同期トリガーが作った
// プロフィール行の読み取り → 子どもレコードへの紐付け」の3段階からなる。
// この3段階はトランザクションではなく、補償処理も行わないベストエフォートの
// サーガである。途中失敗時は孤児（リンクされないAuthUser/Profile）が残り、
// IntegrityGapエラーで孤児のIDを呼び出し元に通知する。
package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ayaka/famauth/internal/identity"
	"github.com/ayaka/famauth/internal/model"
	"github.com/ayaka/famauth/internal/repository"
)

// DependentRole はIDプロバイダのメタデータに記録するロール名。
const DependentRole = "dependent"

// defaultDependentName は子どもレコードに名前がない場合の表示名。
const defaultDependentName = "お子さま"

// IdentityCreator はアカウント作成に必要なインターフェース。
// identity.Clientの部分集合として定義する。
type IdentityCreator interface {
	CreateUser(ctx context.Context, params identity.CreateUserParams) (*model.AuthUser, error)
}

// MetricsRecorder はプロビジョニング結果の記録インターフェース。
type MetricsRecorder interface {
	RecordProvisionSuccess()
	RecordProvisionFailure(stage string)
}

// Service はアカウントプロビジョニングのビジネスロジックを提供する。
type Service struct {
	creator     IdentityCreator
	profileRepo repository.ProfileRepository
	depRepo     repository.DependentRepository
	metrics     MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	creator IdentityCreator,
	profileRepo repository.ProfileRepository,
	depRepo repository.DependentRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		creator:     creator,
		profileRepo: profileRepo,
		depRepo:     depRepo,
		metrics:     metrics,
	}
}

// Provision は子どもレコードに対するログインアカウントを発行する。
// 成功時は登録したメールアドレスのみを返す。パスワードはIDプロバイダにのみ
// 存在し、レスポンスにもログにも一切出さない。
//
// ステップ:
//  1. IDプロバイダでアカウント作成（メール確認済み、role=dependent）。
//     失敗はUpstreamFailureとしてプロバイダのメッセージを透過し、ここで中断する。
//  2. 同期トリガーが作成したプロフィール行を読む。トリガーは非同期であり
//     順序保証がないため、ここは1回だけの読み取りで、リトライしない。
//     行がなければIntegrityGap（孤児AuthUserのIDを含む）。孤児の削除は行わない。
//  3. 子どもレコードのlogin_user_idを更新する。失敗時もIntegrityGapで、
//     ロールバックは行わない。
func (s *Service) Provision(ctx context.Context, dep *model.Dependent, email, password string) (string, error) {
	displayName := dep.Name
	if displayName == "" {
		displayName = defaultDependentName
	}

	// 1. IDプロバイダでアカウント作成
	authUser, err := s.creator.CreateUser(ctx, identity.CreateUserParams{
		Email:    email,
		Password: password,
		Name:     displayName,
		Role:     DependentRole,
	})
	if err != nil {
		s.metrics.RecordProvisionFailure("create_identity")
		var provErr *identity.ProviderError
		if errors.As(err, &provErr) {
			return "", model.NewUpstreamFailureError(provErr.Message)
		}
		return "", model.NewUpstreamFailureError(err.Error())
	}

	// 2. 同期トリガーが作成したプロフィール行の読み取り（1回のみ、リトライなし）
	profile, err := s.profileRepo.FindByAuthID(ctx, authUser.ID)
	if err != nil {
		s.metrics.RecordProvisionFailure("read_profile")
		return "", model.NewIntegrityGapError(authUser.ID, err.Error())
	}
	if profile == nil {
		s.metrics.RecordProvisionFailure("profile_not_synced")
		slog.Error("profile row not synced after identity creation",
			slog.String("auth_id", authUser.ID),
			slog.String("dependent_id", dep.ID),
		)
		return "", model.NewIntegrityGapError(authUser.ID, "プロフィール行がまだ同期されていません")
	}

	// 3. 子どもレコードへの紐付け
	if err := s.depRepo.UpdateLoginUserID(ctx, dep.ID, profile.ID); err != nil {
		s.metrics.RecordProvisionFailure("link_dependent")
		slog.Error("failed to link provisioned account to dependent",
			slog.String("auth_id", authUser.ID),
			slog.String("profile_id", profile.ID),
			slog.String("dependent_id", dep.ID),
			slog.String("error", err.Error()),
		)
		return "", model.NewIntegrityGapError(authUser.ID, err.Error())
	}

	s.metrics.RecordProvisionSuccess()
	slog.Info("dependent account provisioned",
		slog.String("dependent_id", dep.ID),
		slog.String("profile_id", profile.ID),
	)

	return email, nil
}
