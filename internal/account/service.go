// Package account はユーザー登録とログイン認証を提供します。
package account

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/guard"
	"github.com/yourusername/authgate/internal/user"
)

var (
	// ErrInvalidCredentials はメールアドレスまたはパスワードが誤っている場合のエラーです。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken はメールアドレスが登録済みの場合のエラーです。
	ErrEmailTaken = errors.New("email already registered")
	// ErrTemporary はストア障害など、再試行で解消しうる失敗です。
	ErrTemporary = errors.New("temporary failure")
)

// 画面に表示する文言です。内部の詳細は含めません。
const (
	MsgInvalidCredentials = "Incorrect email/password."
	MsgEmailTaken         = "That email is already registered!"
	MsgTemporary          = "Something bad happened! Please try again."
)

// Message はエラーをフォームに表示する文言に変換します。
func Message(err error) string {
	var vErr *guard.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Message
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrEmailTaken):
		return MsgEmailTaken
	default:
		return MsgTemporary
	}
}

// PasswordHasher はパスワードのハッシュ化と検証を行います。
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hashed string) bool
}

// RegisterInput は登録フォームの入力値です。
type RegisterInput struct {
	Email    string
	Nickname string
	Password string
}

// Service はアカウント操作をまとめた構造体です。
type Service struct {
	users  user.Store
	hasher PasswordHasher
	logger *zap.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

// NewService は Service を作成します。
func NewService(users user.Store, hasher PasswordHasher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		logger: logger,
	}
}

// Register はユーザーを登録します。セッションは作成しません。
// 入力チェックは全てストアへの書き込み前に行います。
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	if err := guard.ValidateFields(guard.Fields{
		Email:    in.Email,
		Nickname: in.Nickname,
		Password: in.Password,
	}); err != nil {
		return err
	}
	if err := guard.RequireFields(in.Email, in.Nickname); err != nil {
		return err
	}
	if err := guard.CheckPasswordStrength(in.Password); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return ErrTemporary
	}

	err = s.users.Create(ctx, &user.User{
		Email:        in.Email,
		Nickname:     in.Nickname,
		PasswordHash: hashed,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, user.ErrDuplicateKey):
		return ErrEmailTaken
	default:
		s.logger.Error("failed to create user", zap.Error(err))
		return ErrTemporary
	}
}

// Authenticate はメールアドレスとパスワードを検証し、ハッシュを除いたユーザーを返します。
// ユーザーが存在しない場合もパスワード不一致の場合も同じ ErrInvalidCredentials を返します。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	if err := guard.ValidateFields(guard.Fields{Email: email, Password: password}); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Error("failed to find user by email", zap.Error(err))
		}
		// 応答時間でアカウントの有無が分からないよう、同じコストの比較を行う
		s.hasher.Verify(ctx, password, s.dummy(ctx))
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(ctx, password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u.Sanitized(), nil
}

// dummy は存在しないユーザーとの比較に使うハッシュを返します。
// リクエストのキャンセルには影響されず、失敗した場合は次の呼び出しで再計算します。
func (s *Service) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash != "" {
		return s.dummyHash
	}
	hashed, err := s.hasher.Hash(context.WithoutCancel(ctx), "authgate-dummy-password")
	if err != nil {
		s.logger.Warn("failed to prepare dummy hash", zap.Error(err))
		return ""
	}
	s.dummyHash = hashed
	return hashed
}
