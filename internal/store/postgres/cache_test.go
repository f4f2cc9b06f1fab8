package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

func TestStatsCacheEvictsBeyondSize(t *testing.T) {
	cache := newStatsCache(2, time.Minute)

	_, ok := cache.Get("Admissions|2024-03-12")
	assert.False(t, ok)

	cache.Add("Admissions|2024-03-12", rollup{day: store.Aggregate{Count: 4}})
	got, ok := cache.Get("Admissions|2024-03-12")
	assert.True(t, ok)
	assert.Equal(t, 4, got.day.Count)

	cache.Add("Registrar|2024-03-12", rollup{})
	cache.Add("Accounting|2024-03-12", rollup{})
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("Admissions|2024-03-12")
	assert.False(t, ok, "oldest entry evicted")
}

func TestGuestCacheIndexesByMobileAndID(t *testing.T) {
	cache := newGuestCache(time.Minute)
	guest := models.GuestUser{GuestUserID: "b8d5c7a4-1f7e-4d43-9f1e-5d1c0f7a2e11", Name: "Ana", MobileNumber: "09171234567"}

	_, ok := cache.get("mobile:09171234567")
	assert.False(t, ok)

	cache.put(guest)
	byMobile, ok := cache.get("mobile:09171234567")
	assert.True(t, ok)
	assert.Equal(t, guest, byMobile)
	byID, ok := cache.get("id:" + guest.GuestUserID)
	assert.True(t, ok)
	assert.Equal(t, guest, byID)
}
