package account

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/authgate/internal/guard"
	"github.com/yourusername/authgate/internal/password"
	"github.com/yourusername/authgate/internal/user"
)

// countingStore は書き込み回数を数え、任意のエラーを注入できる Store です。
type countingStore struct {
	*user.MemoryStore
	writes    int
	createErr error
	findErr   error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: user.NewMemoryStore()}
}

func (s *countingStore) Create(ctx context.Context, u *user.User) error {
	s.writes++
	if s.createErr != nil {
		return s.createErr
	}
	return s.MemoryStore.Create(ctx, u)
}

func (s *countingStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindByEmail(ctx, email)
}

func newTestService(store user.Store) *Service {
	return NewService(store, password.NewHasher(bcrypt.MinCost, 2), nil)
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestService(store)

	err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "longenough1"})
	require.NoError(t, err)

	u, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Nickname)
	assert.NotEqual(t, "longenough1", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough1")))
}

func TestRegisterRejectsBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantMsg string
	}{
		{"lt in email", RegisterInput{Email: "<a@b.com", Nickname: "Bob", Password: "longenough1"}, guard.MsgDisallowedChars},
		{"gt in nickname", RegisterInput{Email: "a@b.com", Nickname: "Bob>", Password: "longenough1"}, guard.MsgDisallowedChars},
		{"quote in password", RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "long'enough1"}, guard.MsgDisallowedChars},
		{"percent in password", RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "long%enough1"}, guard.MsgDisallowedChars},
		{"short password", RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "short"}, guard.MsgPasswordShort},
		{"missing nickname", RegisterInput{Email: "a@b.com", Password: "longenough1"}, guard.MsgRequiredFields},
		// 禁止文字のチェックはパスワード長より先に行う
		{"bad chars win over short", RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "<"}, guard.MsgDisallowedChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			svc := newTestService(store)

			err := svc.Register(context.Background(), tt.in)
			var vErr *guard.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantMsg, Message(err))
			assert.Zero(t, store.writes)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestService(store)

	require.NoError(t, svc.Register(ctx, RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "longenough1"}))
	first, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)

	err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Nickname: "Eve", Password: "otherpass99"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, MsgEmailTaken, Message(err))

	after, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, first, after)
}

func TestRegisterStoreFailure(t *testing.T) {
	store := newCountingStore()
	store.createErr = errors.New("connection refused")
	svc := newTestService(store)

	err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "longenough1"})
	assert.ErrorIs(t, err, ErrTemporary)
	assert.Equal(t, MsgTemporary, Message(err))
	assert.NotContains(t, Message(err), "connection refused")
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestService(store)
	require.NoError(t, svc.Register(ctx, RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: "longenough1"}))

	u, err := svc.Authenticate(ctx, "a@b.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Nickname)
	assert.Empty(t, u.PasswordHash)

	_, wrongPassword := svc.Authenticate(ctx, "a@b.com", "wrongpassword")
	_, noUser := svc.Authenticate(ctx, "nobody@b.com", "longenough1")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, noUser)

	store.findErr = errors.New("timeout")
	_, storeErr := svc.Authenticate(ctx, "a@b.com", "longenough1")
	assert.Equal(t, noUser, storeErr)
}

func TestAuthenticateRejectsDisallowedChars(t *testing.T) {
	svc := newTestService(newCountingStore())

	_, err := svc.Authenticate(context.Background(), "a@b.com'--", "longenough1")
	var vErr *guard.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, guard.MsgDisallowedChars, Message(err))
}

func TestAuthenticateRejectsPasswordSharingFirst72Bytes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newCountingStore())
	pw := strings.Repeat("a", guard.MaxPasswordBytes)
	require.NoError(t, svc.Register(ctx, RegisterInput{Email: "a@b.com", Nickname: "Bob", Password: pw}))

	_, err := svc.Authenticate(ctx, "a@b.com", pw+"WRONG-SUFFIX")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := svc.Authenticate(ctx, "a@b.com", pw)
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Nickname)
}

func TestDummyHashSurvivesCanceledFirstLogin(t *testing.T) {
	svc := newTestService(newCountingStore())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Authenticate(canceled, "nobody@b.com", "longenough1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.NotEmpty(t, svc.dummyHash, "dummy hash must be prepared even when the request is canceled")

	first := svc.dummyHash
	_, err = svc.Authenticate(context.Background(), "nobody@b.com", "longenough1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, first, svc.dummyHash)
}

// failingHasher は Hash を指定回数だけ失敗させます。
type failingHasher struct {
	*password.Hasher
	failures int
}

func (h *failingHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if h.failures > 0 {
		h.failures--
		return "", errors.New("hash unavailable")
	}
	return h.Hasher.Hash(ctx, plaintext)
}

func TestDummyHashRetriesAfterFailure(t *testing.T) {
	hasher := &failingHasher{Hasher: password.NewHasher(bcrypt.MinCost, 1), failures: 1}
	svc := NewService(newCountingStore(), hasher, nil)
	ctx := context.Background()

	assert.Empty(t, svc.dummy(ctx))
	assert.NotEmpty(t, svc.dummy(ctx))
}
