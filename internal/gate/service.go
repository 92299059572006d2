// Package gate は呼び出し元の認証と対象リソースの所有権検証を提供する。
// すべてのエントリポイントは、いかなる書き込みよりも前にこのゲートを通過する。
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayaka/famauth/internal/model"
	"github.com/ayaka/famauth/internal/repository"
)

// TokenVerifier はBearerトークンの検証に必要なインターフェース。
// identity.Clientの部分集合として定義する。
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*model.AuthUser, error)
}

// Service は認可ゲートのビジネスロジックを提供する。
type Service struct {
	verifier    TokenVerifier
	profileRepo repository.ProfileRepository
	depRepo     repository.DependentRepository
}

// NewService はServiceを生成する。
func NewService(
	verifier TokenVerifier,
	profileRepo repository.ProfileRepository,
	depRepo repository.DependentRepository,
) *Service {
	return &Service{
		verifier:    verifier,
		profileRepo: profileRepo,
		depRepo:     depRepo,
	}
}

// VerifyCaller はBearerトークンをIDプロバイダに照会し、呼び出し元を特定する。
// トークンが欠落・不正・未知のいずれの場合も同一のUnauthenticatedを返す。
func (s *Service) VerifyCaller(ctx context.Context, token string) (*model.AuthUser, error) {
	if token == "" {
		return nil, model.NewUnauthenticatedError()
	}

	caller, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		slog.Warn("token verification failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUnauthenticatedError()
	}

	return caller, nil
}

// ResolveOwnerProfile は呼び出し元のAuthUserに対応するプロフィール行を取得する。
// 行が存在しない場合はProfileMissingを返す。
func (s *Service) ResolveOwnerProfile(ctx context.Context, caller *model.AuthUser) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByAuthID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve owner profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileMissingError()
	}

	return profile, nil
}

// VerifyOwnership は対象の子どもレコードを取得し、parent_idが呼び出し元の
// プロフィールIDと一致することを検証する。
// 「レコードが存在しない」と「所有していない」は同一のForbiddenを返す。
// 非所有者への存在情報の漏洩を防ぐため、この2つを区別してはならない。
func (s *Service) VerifyOwnership(ctx context.Context, profile *model.Profile, dependentID string) (*model.Dependent, error) {
	dep, err := s.depRepo.FindByID(ctx, dependentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependent: %w", err)
	}
	if dep == nil || dep.ParentID != profile.ID {
		return nil, model.NewForbiddenError()
	}

	return dep, nil
}
