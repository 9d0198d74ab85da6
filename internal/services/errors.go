package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrAlreadyRegistered = errors.New("phone number is already registered")
	ErrNotRegistered     = errors.New("phone number is not registered")
	ErrCooldown          = errors.New("code was sent recently, try again later")
	ErrDeliveryFailed    = errors.New("failed to deliver verification code")
	ErrCodeNotFound      = errors.New("verification code not found or expired")
	ErrCodeExpired       = errors.New("verification code expired")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrAttemptsExhausted = errors.New("too many invalid attempts, request a new code")
	ErrUserVanished      = errors.New("user no longer exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUnknownProvider   = errors.New("unknown sms provider")
)

// CooldownError is returned while a phone is inside its resend cooldown.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s (retry in %ds)", ErrCooldown, int(e.RetryAfter.Round(time.Second)/time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// InvalidCodeError is returned for a wrong code that left the record usable.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s, %d attempts left", ErrInvalidCode, e.Remaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}
