package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a business-rule failure scoped to one request.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unauthenticated(msg string) error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

var (
	ErrProfileNotFound  = NotFound("profile")
	ErrAlreadyRedeemed  = Conflict("already redeemed")
	ErrAlreadyClaimed   = Conflict("reward for today already claimed")
	ErrAlreadyScored    = Conflict("result for this failure already recorded")
	ErrRunInProgress    = Conflict("a run on this failure is already in progress")
	ErrAlreadyReferred  = Conflict("referral code already activated")
	ErrPromoExhausted   = Conflict("promo code redemption limit reached")
	ErrInvalidToken     = Unauthenticated("invalid or expired token")
	ErrBanned           = Forbidden("access denied: user is banned")
	ErrBannedFromEvent  = Forbidden("access denied: banned from this failure")
	ErrInvalidAmount    = Validation("amount must not be zero")
	ErrOwnReferralCode  = Validation("cannot use your own referral code")
	ErrTaskLimitReached = Conflict("task completion limit reached")
	ErrAssignmentRace   = Conflict("assignment is being recorded by another request, retry")
	ErrAdAlreadyPaid    = Conflict("reward for this ad view already claimed")
	ErrAdNotCompleted   = Validation("ad view is not completed")
)

// InsufficientBalanceError carries the numbers the client shows to the player.
type InsufficientBalanceError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Balance, e.Required)
}

// IntegrationError wraps any failure of a third-party HTTP call.
type IntegrationError struct {
	Service string
	Err     error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s integration failed: %v", e.Service, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// duplicateAs maps a unique-index violation onto a domain conflict.
func duplicateAs(err, target error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return target
	}
	return err
}

// checkID rejects ids that are not UUIDs before they reach a uuid column.
func checkID(what, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return Validation("invalid %s", what)
	}
	return nil
}

// notFoundAs maps gorm.ErrRecordNotFound onto a domain not-found error.
func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
