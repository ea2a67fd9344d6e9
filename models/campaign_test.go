package models

import (
	"testing"
	"time"

	"github.com/callpilot/callpilot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// windowCampaign builds a campaign running Jan 10-12 2026 with a 09:00-17:00
// daily calling window.
func windowCampaign() *Campaign {
	return &Campaign{
		ID:            1,
		Status:        CampaignStatusActive,
		StartDate:     time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		FirstCallTime: 9 * 60,
		LastCallTime:  17 * 60,
	}
}

func TestCampaignStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    CampaignStatus
		to      CampaignStatus
		allowed bool
	}{
		{"draft to scheduled", CampaignStatusDraft, CampaignStatusScheduled, true},
		{"draft to cancelled", CampaignStatusDraft, CampaignStatusCancelled, true},
		{"draft to active", CampaignStatusDraft, CampaignStatusActive, false},
		{"draft to completed", CampaignStatusDraft, CampaignStatusCompleted, false},
		{"scheduled to active", CampaignStatusScheduled, CampaignStatusActive, true},
		{"scheduled to paused", CampaignStatusScheduled, CampaignStatusPaused, true},
		{"scheduled to cancelled", CampaignStatusScheduled, CampaignStatusCancelled, true},
		{"scheduled to completed", CampaignStatusScheduled, CampaignStatusCompleted, false},
		{"active to paused", CampaignStatusActive, CampaignStatusPaused, true},
		{"active to completed", CampaignStatusActive, CampaignStatusCompleted, true},
		{"active to cancelled", CampaignStatusActive, CampaignStatusCancelled, true},
		{"active to scheduled", CampaignStatusActive, CampaignStatusScheduled, false},
		{"paused to scheduled", CampaignStatusPaused, CampaignStatusScheduled, true},
		{"paused to active", CampaignStatusPaused, CampaignStatusActive, true},
		{"paused to cancelled", CampaignStatusPaused, CampaignStatusCancelled, true},
		{"paused to completed", CampaignStatusPaused, CampaignStatusCompleted, false},
		{"completed is terminal", CampaignStatusCompleted, CampaignStatusActive, false},
		{"cancelled is terminal", CampaignStatusCancelled, CampaignStatusScheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Campaign{Status: tt.from}
			assert.Equal(t, tt.allowed, c.CanTransitionTo(tt.to))
		})
	}
}

func TestCampaignStatusTerminal(t *testing.T) {
	assert.True(t, CampaignStatusCompleted.Terminal())
	assert.True(t, CampaignStatusCancelled.Terminal())
	assert.False(t, CampaignStatusDraft.Terminal())
	assert.False(t, CampaignStatusScheduled.Terminal())
	assert.False(t, CampaignStatusActive.Terminal())
	assert.False(t, CampaignStatusPaused.Terminal())
}

func TestCampaignValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Campaign)
		wantErr bool
	}{
		{"valid window", func(c *Campaign) {}, false},
		{"single day window", func(c *Campaign) { c.EndDate = c.StartDate }, false},
		{"end before start", func(c *Campaign) {
			c.EndDate = c.StartDate.AddDate(0, 0, -1)
		}, true},
		{"first call time negative", func(c *Campaign) { c.FirstCallTime = -1 }, true},
		{"last call time past midnight", func(c *Campaign) { c.LastCallTime = 1440 }, true},
		{"last before first", func(c *Campaign) {
			c.FirstCallTime = 600
			c.LastCallTime = 300
		}, true},
		{"zero width time window", func(c *Campaign) {
			c.FirstCallTime = 600
			c.LastCallTime = 600
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := windowCampaign()
			tt.mutate(c)
			err := c.ValidateWindow()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCampaignWindowOpenAt(t *testing.T) {
	c := windowCampaign()

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"before start date", time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC), false},
		{"first day before opening", time.Date(2026, 1, 10, 8, 59, 0, 0, time.UTC), false},
		{"first day at opening", time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), true},
		{"midday", time.Date(2026, 1, 11, 12, 30, 0, 0, time.UTC), true},
		{"at closing minute", time.Date(2026, 1, 12, 17, 0, 0, 0, time.UTC), true},
		{"after closing", time.Date(2026, 1, 12, 17, 1, 0, 0, time.UTC), false},
		{"after end date", time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, c.WindowOpenAt(tt.at))
		})
	}
}

func TestCampaignNextWindowOpen(t *testing.T) {
	c := windowCampaign()

	t.Run("inside window returns now", func(t *testing.T) {
		now := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
		open := c.NextWindowOpen(now)
		require.NotNil(t, open)
		assert.Equal(t, now, *open)
	})

	t.Run("before start date returns first opening", func(t *testing.T) {
		now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
		open := c.NextWindowOpen(now)
		require.NotNil(t, open)
		assert.Equal(t, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), *open)
	})

	t.Run("same day before opening", func(t *testing.T) {
		now := time.Date(2026, 1, 11, 6, 0, 0, 0, time.UTC)
		open := c.NextWindowOpen(now)
		require.NotNil(t, open)
		assert.Equal(t, time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC), *open)
	})

	t.Run("after closing rolls to next day", func(t *testing.T) {
		now := time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC)
		open := c.NextWindowOpen(now)
		require.NotNil(t, open)
		assert.Equal(t, time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC), *open)
	})

	t.Run("after last closing returns nil", func(t *testing.T) {
		now := time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC)
		assert.Nil(t, c.NextWindowOpen(now))
	})
}

func TestCampaignWindowExhausted(t *testing.T) {
	c := windowCampaign()

	assert.False(t, c.WindowExhausted(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.WindowExhausted(time.Date(2026, 1, 12, 16, 59, 0, 0, time.UTC)))
	assert.True(t, c.WindowExhausted(time.Date(2026, 1, 12, 17, 1, 0, 0, time.UTC)))
	assert.True(t, c.WindowExhausted(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMinutesIntoDay(t *testing.T) {
	assert.Equal(t, 0, utils.MinutesIntoDay(time.Date(2026, 1, 10, 0, 0, 59, 0, time.UTC)))
	assert.Equal(t, 9*60+30, utils.MinutesIntoDay(time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, 1439, utils.MinutesIntoDay(time.Date(2026, 1, 10, 23, 59, 0, 0, time.UTC)))
}
