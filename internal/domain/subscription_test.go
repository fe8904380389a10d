package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtendSubscription(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("no current subscription extends from now", func(t *testing.T) {
		end := ExtendSubscription(nil, 1, now)
		assert.Equal(t, now.AddDate(0, 1, 0), end)
	})

	t.Run("expired subscription extends from now", func(t *testing.T) {
		expired := now.AddDate(0, -2, 0)
		end := ExtendSubscription(&expired, 3, now)
		assert.Equal(t, now.AddDate(0, 3, 0), end)
	})

	t.Run("active subscription extends from its end", func(t *testing.T) {
		active := now.AddDate(0, 0, 10)
		end := ExtendSubscription(&active, 6, now)
		assert.Equal(t, active.AddDate(0, 6, 0), end)
	})
}

func TestAddBonusDays(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("no subscription counts from now", func(t *testing.T) {
		end := AddBonusDays(nil, 7, now)
		assert.Equal(t, now.AddDate(0, 0, 7), end)
	})

	t.Run("active subscription counts from its end", func(t *testing.T) {
		active := now.AddDate(0, 1, 0)
		end := AddBonusDays(&active, 3, now)
		assert.Equal(t, active.AddDate(0, 0, 3), end)
	})
}

func TestUserHasActiveSubscription(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nil end date", func(t *testing.T) {
		u := &User{}
		assert.False(t, u.HasActiveSubscription(now))
	})

	t.Run("future end date", func(t *testing.T) {
		end := now.Add(time.Hour)
		u := &User{SubscriptionEndDate: &end}
		assert.True(t, u.HasActiveSubscription(now))
	})

	t.Run("past end date", func(t *testing.T) {
		end := now.Add(-time.Hour)
		u := &User{SubscriptionEndDate: &end}
		assert.False(t, u.HasActiveSubscription(now))
	})
}
