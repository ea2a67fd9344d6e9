package dto

// CallEventRequest represents one provider webhook event. The provider sends
// either "id" or "execution_id" for the correlation ID depending on event
// type, so both are accepted and coalesced before processing.
type CallEventRequest struct {
	ID          string  `json:"id,omitempty"`
	ExecutionID string  `json:"execution_id,omitempty"`
	AgentID     *string `json:"agent_id,omitempty"`
	Status      string  `json:"status" validate:"required"`

	// Terminal-event payload
	Transcript      *string `json:"transcript,omitempty"`
	RecordingURL    *string `json:"recording_url,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
}

// CorrelationID returns whichever correlation field the provider populated
func (r *CallEventRequest) CorrelationID() string {
	if r.ExecutionID != "" {
		return r.ExecutionID
	}
	return r.ID
}

// CallEventResponse represents the webhook acknowledgment
type CallEventResponse struct {
	Message string `json:"message"`
}
