package dto

import "time"

// SchedulerStatusResponse reports the engine's current view for operators
type SchedulerStatusResponse struct {
	Message          string     `json:"message"`
	Running          bool       `json:"running"`
	ActiveCampaigns  int        `json:"active_campaigns"`
	NextWakeAt       *time.Time `json:"next_wake_at,omitempty"`
	LastPassAt       *time.Time `json:"last_pass_at,omitempty"`
	LastPassDispatch int        `json:"last_pass_dispatch"`
	InFlightCalls    int64      `json:"in_flight_calls"`
}
