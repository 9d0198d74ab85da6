package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/example/shafran-auth/internal/clock"
	"github.com/example/shafran-auth/internal/config"
	"github.com/example/shafran-auth/internal/models"
	"github.com/example/shafran-auth/internal/repositories"
	"github.com/example/shafran-auth/internal/utils"
)

const notifyTimeout = 10 * time.Second

// Notifier is told about newly registered users.
type Notifier interface {
	NotifyNewUser(ctx context.Context, n UserNotification) error
}

// AuthDeps groups the collaborators of AuthService. Notifier and Clock are optional.
type AuthDeps struct {
	Users    repositories.UserRepository
	Registry *VerificationRegistry
	Sender   Sender
	Codes    CodeGenerator
	Sessions *utils.SessionIssuer
	Notifier Notifier
	Clock    clock.Clocker
}

// AuthResult is returned by a successful confirmation.
type AuthResult struct {
	Token string
	User  *models.User
}

// AuthService runs the phone registration and login flows.
type AuthService struct {
	users    repositories.UserRepository
	registry *VerificationRegistry
	sender   Sender
	codes    CodeGenerator
	sessions *utils.SessionIssuer
	notifier Notifier
	clock    clock.Clocker

	phoneRe  *regexp.Regexp
	codeTTL  time.Duration
	hashCost int
}

// NewAuthService constructs an AuthService.
func NewAuthService(deps AuthDeps, cfg config.VerificationConfig) *AuthService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	codes := deps.Codes
	if codes == nil {
		codes = NewCodeGenerator()
	}

	return &AuthService{
		users:    deps.Users,
		registry: deps.Registry,
		sender:   deps.Sender,
		codes:    codes,
		sessions: deps.Sessions,
		notifier: deps.Notifier,
		clock:    clk,
		phoneRe:  regexp.MustCompile(`^` + regexp.QuoteMeta(cfg.PhonePrefix) + `[0-9]{9}$`),
		codeTTL:  cfg.CodeTTL,
		hashCost: cfg.HashCost,
	}
}

// ValidPhone reports whether phone has the national format.
func (s *AuthService) ValidPhone(phone string) bool {
	return s.phoneRe.MatchString(phone)
}

// RequestRegistrationCode sends a code to a phone that has no account yet.
// name is kept with the code and stored once the phone is confirmed.
func (s *AuthService) RequestRegistrationCode(ctx context.Context, phone, name string) error {
	if !s.ValidPhone(phone) {
		return ErrInvalidPhone
	}

	_, err := s.users.FindByPhone(ctx, phone)
	if err == nil {
		return ErrAlreadyRegistered
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	return s.sendCode(ctx, phone, name)
}

// RequestLoginCode sends a code to the phone of an existing user.
func (s *AuthService) RequestLoginCode(ctx context.Context, phone string) error {
	if !s.ValidPhone(phone) {
		return ErrInvalidPhone
	}

	_, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	return s.sendCode(ctx, phone, "")
}

// sendCode holds the phone lock across check, delivery and store, so two
// requests for one phone cannot both pass the cooldown. The record is only
// written after the provider accepted the message.
func (s *AuthService) sendCode(ctx context.Context, phone, name string) error {
	unlock := s.registry.Lock(phone)
	defer unlock()

	if !s.registry.CanSend(phone) {
		return &CooldownError{RetryAfter: s.registry.CooldownRemaining(phone)}
	}

	code := s.codes.Generate()
	hash, err := utils.HashCode(code, s.hashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	expiresAt := s.clock.Now().Add(s.codeTTL)

	sent, err := s.sender.Send(ctx, phone, code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if !sent {
		return ErrDeliveryFailed
	}

	s.registry.Put(phone, PendingVerification{
		CodeHash:    hash,
		ExpiresAt:   expiresAt,
		PendingName: name,
	})
	slog.InfoContext(ctx, "verification code sent", "phone", phone)
	return nil
}

// matchCode checks code against the pending record. The caller holds the
// phone lock.
func (s *AuthService) matchCode(ctx context.Context, phone, code string) (PendingVerification, error) {
	rec, ok := s.registry.Get(phone)
	if !ok {
		return PendingVerification{}, ErrCodeNotFound
	}

	if rec.Expired(s.clock.Now()) {
		s.registry.Delete(phone)
		return PendingVerification{}, ErrCodeExpired
	}

	if !utils.CheckCode(rec.CodeHash, code) {
		remaining, exhausted := s.registry.RecordFailedAttempt(phone)
		if exhausted {
			slog.WarnContext(ctx, "verification attempts exhausted", "phone", phone)
			return PendingVerification{}, ErrAttemptsExhausted
		}
		return PendingVerification{}, &InvalidCodeError{Remaining: remaining}
	}

	return rec, nil
}

// ConfirmRegistration creates the user once the code matches.
func (s *AuthService) ConfirmRegistration(ctx context.Context, phone, code string) (*AuthResult, error) {
	unlock := s.registry.Lock(phone)
	defer unlock()

	rec, err := s.matchCode(ctx, phone, code)
	if err != nil {
		return nil, err
	}

	// Someone may have registered the phone since the code was sent.
	_, err = s.users.FindByPhone(ctx, phone)
	if err == nil {
		s.registry.Delete(phone)
		return nil, ErrAlreadyRegistered
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user := &models.User{
		Phone:      phone,
		Name:       rec.PendingName,
		IsVerified: true,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrPhoneTaken) {
			s.registry.Delete(phone)
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.registry.Delete(phone)

	token, err := s.sessions.Issue(user.ID, user.Phone)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "phone", user.Phone)
	s.notifyNewUser(user)

	return &AuthResult{Token: token, User: user}, nil
}

// ConfirmLoginCode issues a session for an existing user once the code matches.
func (s *AuthService) ConfirmLoginCode(ctx context.Context, phone, code string) (*AuthResult, error) {
	unlock := s.registry.Lock(phone)
	defer unlock()

	if _, err := s.matchCode(ctx, phone, code); err != nil {
		return nil, err
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repositories.ErrUserNotFound) {
		s.registry.Delete(phone)
		return nil, ErrUserVanished
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	s.registry.Delete(phone)

	token, err := s.sessions.Issue(user.ID, user.Phone)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	slog.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

// CurrentUser loads the user a session token belongs to.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *AuthService) notifyNewUser(user *models.User) {
	if s.notifier == nil {
		return
	}
	n := UserNotification{
		UserID:    user.ID,
		Name:      user.Name,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyNewUser(ctx, n); err != nil {
			slog.Warn("new user notification failed", "user_id", n.UserID, "error", err)
		}
	}()
}
