package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/outlinehq/outliner/internal/auth/domain"
	"github.com/outlinehq/outliner/internal/auth/repository"
	"github.com/outlinehq/outliner/internal/providers/email"
	"github.com/outlinehq/outliner/pkg/db"
	"go.uber.org/zap"
)

type recordingProvider struct {
	bodies []string
	fail   bool
}

func (p *recordingProvider) Send(_ context.Context, _ []string, _ string, htmlBody string) error {
	if p.fail {
		return errors.New("smtp unavailable")
	}
	p.bodies = append(p.bodies, htmlBody)
	return nil
}

func newTestService(t *testing.T, provider email.Provider) authdomain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}, &authdomain.Verification{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo, verificationRepo := repository.New(dbConn)
	sender, err := email.NewSender(provider, "http://localhost:3000")
	if err != nil {
		t.Fatalf("failed to build sender: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(zap.NewNop(), repo, sessionRepo, verificationRepo, sender, node)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := newTestService(t, &email.NoOpProvider{})

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err = svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "Alice@Example.com",
		Password: "another-password",
	})
	if !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestCreateUserShortPassword(t *testing.T) {
	svc := newTestService(t, &email.NoOpProvider{})

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "short",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateUserEmailFailureReported(t *testing.T) {
	svc := newTestService(t, &recordingProvider{fail: true})

	result, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if result.EmailSent {
		t.Fatal("expected EmailSent false")
	}
	if result.EmailError == "" {
		t.Fatal("expected EmailError to be set")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, &email.NoOpProvider{})

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc := newTestService(t, &email.NoOpProvider{})

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	login, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	if login.RawToken == "" {
		t.Fatal("expected session token")
	}
	if !login.ExpiresAt.After(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expected 7 day session, got %v", login.ExpiresAt)
	}

	session, err := svc.Authenticate(context.Background(), login.RawToken)
	if err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	if session.UserID != login.User.ID {
		t.Fatalf("expected session for user %v, got %v", login.User.ID, session.UserID)
	}

	if err := svc.Logout(context.Background(), login.RawToken); err != nil {
		t.Fatalf("failed to logout: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), login.RawToken); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

var verifyTokenRe = regexp.MustCompile(`verify-email\?token=([A-Za-z0-9_%-]+)`)

func extractVerifyToken(t *testing.T, body string) string {
	t.Helper()
	m := verifyTokenRe.FindStringSubmatch(body)
	if len(m) != 2 {
		t.Fatalf("no verification token in email body")
	}
	token, err := url.QueryUnescape(m[1])
	if err != nil {
		t.Fatalf("failed to unescape token: %v", err)
	}
	return token
}

func TestVerifyEmailSingleUse(t *testing.T) {
	provider := &recordingProvider{}
	svc := newTestService(t, provider)

	result, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if result.User.EmailVerified {
		t.Fatal("expected unverified user")
	}
	if len(provider.bodies) != 1 {
		t.Fatalf("expected one verification email, got %d", len(provider.bodies))
	}

	token := extractVerifyToken(t, provider.bodies[0])
	user, err := svc.VerifyEmail(context.Background(), token)
	if err != nil {
		t.Fatalf("failed to verify email: %v", err)
	}
	if !user.EmailVerified {
		t.Fatal("expected verified user")
	}

	// The token is consumed on first use.
	if _, err := svc.VerifyEmail(context.Background(), token); !errors.Is(err, authdomain.ErrVerificationNotFound) {
		t.Fatalf("expected ErrVerificationNotFound, got %v", err)
	}
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc := newTestService(t, &email.NoOpProvider{})

	if _, err := svc.VerifyEmail(context.Background(), "bogus"); !errors.Is(err, authdomain.ErrVerificationNotFound) {
		t.Fatalf("expected ErrVerificationNotFound, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "alice@example.com" {
		t.Fatalf("expected alice@example.com, got %s", got)
	}

	if _, err := NormalizeEmail("not-an-email"); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hashed, err := hashPassword("super-secret")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if !strings.HasPrefix(hashed, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", hashed)
	}
	if !verifyPassword("super-secret", hashed) {
		t.Fatal("expected password to verify")
	}
	if verifyPassword("wrong", hashed) {
		t.Fatal("expected wrong password to fail")
	}
}
