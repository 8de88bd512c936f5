package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	byID    map[string]*User
	byEmail map[string]*User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*User{}, byEmail: map[string]*User{}}
}

func (m *memUsers) CreateUser(ctx context.Context, u *User) error {
	if _, taken := m.byEmail[u.Email]; taken {
		return ErrEmailTaken
	}
	c := *u
	m.byID[u.ID] = &c
	m.byEmail[u.Email] = &c
	return nil
}

func (m *memUsers) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := m.byEmail[email]; ok {
		c := *u
		return &c, nil
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) GetUserByID(ctx context.Context, id string) (*User, error) {
	if u, ok := m.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, ErrUserNotFound
}

type memTokens struct {
	tokens map[string]string // token -> user id
}

func newMemTokens() *memTokens { return &memTokens{tokens: map[string]string{}} }

func (m *memTokens) Issue(ctx context.Context, userID string) (string, error) {
	tok := uuid.NewString()
	m.tokens[tok] = userID
	return tok, nil
}

func (m *memTokens) Resolve(ctx context.Context, token string) (string, bool) {
	id, ok := m.tokens[token]
	return id, ok
}

func (m *memTokens) RevokeAll(ctx context.Context, userID string) error {
	for tok, id := range m.tokens {
		if id == userID {
			delete(m.tokens, tok)
		}
	}
	return nil
}

func newTestService() *Service {
	return &Service{Users: newMemUsers(), Tokens: newMemTokens()}
}

func TestRegisterHashesPasswordAndIssuesToken(t *testing.T) {
	svc := newTestService()

	u, token, err := svc.Register(context.Background(), "Alice", "Alice@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)

	id, ok := svc.Authenticate(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, u.ID, id)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "Mallory", "alice@example.com", "other-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	u, token, err := svc.Login(context.Background(), "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesEveryToken(t *testing.T) {
	svc := newTestService()
	u, t1, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	_, t2, err := svc.Login(context.Background(), "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), u.ID))

	_, ok := svc.Authenticate(context.Background(), t1)
	assert.False(t, ok)
	_, ok = svc.Authenticate(context.Background(), t2)
	assert.False(t, ok)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	svc := newTestService()
	_, ok := svc.Authenticate(context.Background(), "")
	assert.False(t, ok)
}
