package services

import (
	"fmt"
	"log"
	"sync"
)

// AlertService surfaces operational anomalies to operators. Engine components
// call it for events that need a human eye: webhook events with no matching
// call, entries stuck in processing, calls abandoned mid flight.
type AlertService interface {
	AlertUnknownCorrelation(correlationID string, status string)
	AlertStuckEntries(campaignID uint, count int)
	AlertStuckCalls(count int)
	AlertWalletDebitFailure(customerID uint, callID uint, err error)
}

// AlertServiceImpl implements AlertService on top of the notification channels
type AlertServiceImpl struct {
	notifier    Notifier
	alertMobile string
	alertEmail  string
	logger      *log.Logger
}

// Notifier delivers a rendered alert to an operator channel
type Notifier interface {
	SendSMS(mobile, message string) error
	SendEmail(email, subject, message string) error
}

// NewAlertService creates a new alert service
func NewAlertService(notifier Notifier, alertMobile, alertEmail string, logger *log.Logger) AlertService {
	return &AlertServiceImpl{
		notifier:    notifier,
		alertMobile: alertMobile,
		alertEmail:  alertEmail,
		logger:      logger,
	}
}

func (s *AlertServiceImpl) AlertUnknownCorrelation(correlationID string, status string) {
	s.deliver("unknown correlation ID",
		fmt.Sprintf("webhook event with unknown correlation ID %s (status %s)", correlationID, status))
}

func (s *AlertServiceImpl) AlertStuckEntries(campaignID uint, count int) {
	s.deliver("stuck queue entries",
		fmt.Sprintf("campaign %d has %d queue entries stuck in processing", campaignID, count))
}

func (s *AlertServiceImpl) AlertStuckCalls(count int) {
	s.deliver("stuck calls",
		fmt.Sprintf("%d calls exceeded the in-flight age limit and were force-failed", count))
}

func (s *AlertServiceImpl) AlertWalletDebitFailure(customerID uint, callID uint, err error) {
	s.deliver("wallet debit failure",
		fmt.Sprintf("failed to debit customer %d for call %d: %v", customerID, callID, err))
}

func (s *AlertServiceImpl) deliver(subject, message string) {
	if s.logger != nil {
		s.logger.Printf("ALERT [%s]: %s", subject, message)
	}
	if s.notifier == nil {
		return
	}
	if s.alertMobile != "" {
		if err := s.notifier.SendSMS(s.alertMobile, message); err != nil && s.logger != nil {
			s.logger.Printf("failed to send alert SMS: %v", err)
		}
	}
	if s.alertEmail != "" {
		if err := s.notifier.SendEmail(s.alertEmail, "callpilot: "+subject, message); err != nil && s.logger != nil {
			s.logger.Printf("failed to send alert email: %v", err)
		}
	}
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Messages: make([]string, 0)}
}

func (m *MockNotifier) SendSMS(mobile, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	return nil
}

func (m *MockNotifier) SendEmail(email, subject, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, subject+": "+message)
	return nil
}
