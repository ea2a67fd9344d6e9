// Package businessflow contains the core business logic and use cases for campaign and call workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAccountInactive  = errors.New("account is inactive")

	// Agent-related errors
	ErrAgentNotFound     = errors.New("agent not found")
	ErrAgentInactive     = errors.New("agent is inactive")
	ErrAgentAccessDenied = errors.New("agent belongs to another customer")

	// Campaign-related errors
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrCampaignAccessDenied    = errors.New("campaign access denied")
	ErrCampaignNotDraft        = errors.New("campaign is not in draft status")
	ErrInvalidStatusTransition = errors.New("invalid campaign status transition")
	ErrInvalidCallingWindow    = errors.New("invalid calling window")
	ErrContactsRequired        = errors.New("at least one contact is required")
	ErrQueueEmpty              = errors.New("campaign has no queued contacts")

	// Dispatch-related errors
	ErrAdmissionDenied   = errors.New("concurrency limit reached")
	ErrNoEligibleEntries = errors.New("no eligible queue entries")

	// Call event errors
	ErrUnknownCorrelationID = errors.New("unknown correlation ID")
	ErrUnknownCallStatus    = errors.New("unknown call status")
	ErrStaleCallEvent       = errors.New("stale or duplicate call event")
	ErrCallNotFound         = errors.New("call not found")

	// Billing errors
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsAgentNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound)
}

func IsAgentAccessDenied(err error) bool {
	return errors.Is(err, ErrAgentAccessDenied)
}

func IsAgentInactive(err error) bool {
	return errors.Is(err, ErrAgentInactive)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsInvalidCallingWindow(err error) bool {
	return errors.Is(err, ErrInvalidCallingWindow)
}

func IsCampaignNotDraft(err error) bool {
	return errors.Is(err, ErrCampaignNotDraft)
}

func IsContactsRequired(err error) bool {
	return errors.Is(err, ErrContactsRequired)
}

func IsQueueEmpty(err error) bool {
	return errors.Is(err, ErrQueueEmpty)
}

func IsAdmissionDenied(err error) bool {
	return errors.Is(err, ErrAdmissionDenied)
}

func IsUnknownCorrelationID(err error) bool {
	return errors.Is(err, ErrUnknownCorrelationID)
}

func IsUnknownCallStatus(err error) bool {
	return errors.Is(err, ErrUnknownCallStatus)
}

func IsStaleCallEvent(err error) bool {
	return errors.Is(err, ErrStaleCallEvent)
}

func IsWalletNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}
