// Package services provides external service integrations and technical concerns like call placement and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/utils"
	"github.com/google/uuid"
)

var (
	// ErrPlacementRejected means the provider definitively refused the call.
	// No call exists on the provider side and the attempt may be retried later.
	ErrPlacementRejected = errors.New("call placement rejected by provider")

	// ErrPlacementAmbiguous means the outcome is unknown (timeout, 5xx,
	// connection reset). The provider may or may not have started the call, so
	// the caller must record it and let webhooks or reconciliation settle it.
	ErrPlacementAmbiguous = errors.New("call placement outcome unknown")
)

// CallPlacer starts outbound calls on the telephony provider
type CallPlacer interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResponse, error)
}

// PlaceCallRequest carries everything the provider needs to start one call.
// CorrelationID is generated before the API call so webhook events can be
// matched back even when the placement response is lost.
type PlaceCallRequest struct {
	CorrelationID   string `json:"executionId"`
	ProviderAgentID string `json:"agentId"`
	PhoneNumber     string `json:"phoneNumber"` // E.164
	CampaignUUID    string `json:"campaignRef,omitempty"`
}

// PlaceCallResponse represents the provider's acknowledgment
type PlaceCallResponse struct {
	ProviderID string `json:"id"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// CallPlacerImpl implements CallPlacer against the provider HTTP API
type CallPlacerImpl struct {
	config *config.ProviderConfig
	client *http.Client
}

// NewCallPlacer creates a new call placer instance
func NewCallPlacer(cfg *config.ProviderConfig) CallPlacer {
	return &CallPlacerImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// PlaceCall starts a single outbound call
func (s *CallPlacerImpl) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResponse, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal call placement request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v1/calls", s.config.Domain)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		// Transport failure after the request may have left the process.
		return nil, fmt.Errorf("call placement for %s: %w: %v", req.CorrelationID, ErrPlacementAmbiguous, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result PlaceCallResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("call placement for %s: %w: undecodable response: %v", req.CorrelationID, ErrPlacementAmbiguous, err)
		}
		return &result, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("call placement for %s: %w (HTTP %d)", req.CorrelationID, ErrPlacementRejected, resp.StatusCode)
	default:
		return nil, fmt.Errorf("call placement for %s: %w (HTTP %d)", req.CorrelationID, ErrPlacementAmbiguous, resp.StatusCode)
	}
}

// MockCallPlacer implements CallPlacer for testing and local development
type MockCallPlacer struct {
	mu          sync.Mutex
	PlacedCalls []MockPlacedCall

	// FailNext, when set, makes the next PlaceCall return this error once.
	FailNext error
}

// MockPlacedCall records one mock placement
type MockPlacedCall struct {
	Request  PlaceCallRequest
	PlacedAt time.Time
}

// NewMockCallPlacer creates a new mock call placer
func NewMockCallPlacer() *MockCallPlacer {
	return &MockCallPlacer{
		PlacedCalls: make([]MockPlacedCall, 0),
	}
}

// PlaceCall records a mock placement
func (m *MockCallPlacer) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, err
	}

	m.PlacedCalls = append(m.PlacedCalls, MockPlacedCall{
		Request:  req,
		PlacedAt: utils.UTCNow(),
	})
	return &PlaceCallResponse{
		ProviderID: uuid.New().String(),
		Status:     "ACCEPTED",
		StatusCode: 200,
	}, nil
}

// GetPlacedCalls returns all recorded mock placements
func (m *MockCallPlacer) GetPlacedCalls() []MockPlacedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockPlacedCall, len(m.PlacedCalls))
	copy(out, m.PlacedCalls)
	return out
}

// ClearPlacedCalls clears the recorded placements
func (m *MockCallPlacer) ClearPlacedCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlacedCalls = make([]MockPlacedCall, 0)
}
