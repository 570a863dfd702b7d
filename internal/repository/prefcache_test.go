// internal/repository/prefcache_test.go
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/models"
)

func prefColumns() []string {
	return []string{"id", "user_id", "contact_id", "email_enabled", "sms_enabled",
		"quiet_hours_start", "quiet_hours_end", "timezone", "created_at", "updated_at"}
}

func newCacheHarness(t *testing.T) (*CachedPreferenceStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := NewCachedPreferenceStore(
		NewChannelPreferenceRepository(db),
		client,
		5*time.Minute,
		logger.NewTestLogger(t),
	)
	return store, mock, mr
}

func expectPrefQuery(mock sqlmock.Sqlmock, userID string) {
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM channel_preferences WHERE user_id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(prefColumns()).
			AddRow("pref-1", userID, nil, true, false, "22:00", "07:00", "UTC", now, now))
}

func TestCachedPreferenceStore_ReadThrough(t *testing.T) {
	store, mock, mr := newCacheHarness(t)
	ctx := context.Background()

	// First read hits the database and populates the cache.
	expectPrefQuery(mock, "user-1")
	p, err := store.FindByUserID(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "pref-1", p.ID)
	assert.True(t, p.EmailEnabled)
	assert.False(t, p.SMSEnabled)
	assert.True(t, mr.Exists("pref:user:user-1"))

	// Second read is served from the cache; no second query expected.
	p, err = store.FindByUserID(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "pref-1", p.ID)
	assert.Equal(t, "22:00", p.QuietHoursStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedPreferenceStore_CachesNilResult(t *testing.T) {
	store, mock, mr := newCacheHarness(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM channel_preferences WHERE user_id").
		WithArgs("user-none").
		WillReturnRows(sqlmock.NewRows(prefColumns()))

	p, err := store.FindByUserID(ctx, "user-none")
	assert.NoError(t, err)
	assert.Nil(t, p)

	cached, err := mr.Get("pref:user:user-none")
	assert.NoError(t, err)
	assert.Equal(t, "nil", cached)

	// Confirmed absence is served from the cache too.
	p, err = store.FindByUserID(ctx, "user-none")
	assert.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedPreferenceStore_FailsOpenWhenCacheDown(t *testing.T) {
	store, mock, mr := newCacheHarness(t)
	ctx := context.Background()
	mr.Close()

	expectPrefQuery(mock, "user-1")
	p, err := store.FindByUserID(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "pref-1", p.ID)
}

func TestCachedPreferenceStore_UpsertEvicts(t *testing.T) {
	store, mock, mr := newCacheHarness(t)
	ctx := context.Background()

	expectPrefQuery(mock, "user-1")
	_, err := store.FindByUserID(ctx, "user-1")
	assert.NoError(t, err)
	assert.True(t, mr.Exists("pref:user:user-1"))

	mock.ExpectExec("INSERT INTO channel_preferences").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	p := &models.ChannelPreference{
		ID: "pref-1", UserID: "user-1",
		EmailEnabled: true, SMSEnabled: true,
		CreatedAt: now, UpdatedAt: now,
	}
	assert.NoError(t, store.Upsert(ctx, p))
	assert.False(t, mr.Exists("pref:user:user-1"))
}

func TestUpsert_EvictsExactKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	client, redisMock := redismock.NewClientMock()
	store := NewCachedPreferenceStore(
		NewChannelPreferenceRepository(db),
		client,
		5*time.Minute,
		logger.NewNoOpLogger(),
	)

	mock.ExpectExec("INSERT INTO channel_preferences").
		WillReturnResult(sqlmock.NewResult(0, 1))
	redisMock.ExpectDel("pref:contact:contact-1").SetVal(1)

	now := time.Now().UTC()
	p := &models.ChannelPreference{
		ID: "pref-2", ContactID: "contact-1",
		EmailEnabled: true,
		CreatedAt:    now, UpdatedAt: now,
	}
	assert.NoError(t, store.Upsert(context.Background(), p))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedPreferenceStore_CorruptEntryFallsThrough(t *testing.T) {
	store, mock, mr := newCacheHarness(t)
	ctx := context.Background()

	mr.Set("pref:user:user-1", "{not json")
	expectPrefQuery(mock, "user-1")

	p, err := store.FindByUserID(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "pref-1", p.ID)
}
