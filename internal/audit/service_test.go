package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	auditRepo "github.com/choplife/choplifeib/internal/database/audit"
	"github.com/choplife/choplifeib/internal/database/dbtest"
	"github.com/choplife/choplifeib/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db := dbtest.New(t)
	return NewService(auditRepo.NewRepository(db)), db
}

func waitForEvents(t *testing.T, db *gorm.DB, n int64) []entities.AuditEvent {
	t.Helper()
	require.Eventually(t, func() bool {
		var count int64
		db.Model(&entities.AuditEvent{}).Count(&count)
		return count == n
	}, 2*time.Second, 10*time.Millisecond)

	var events []entities.AuditEvent
	require.NoError(t, db.Order("id ASC").Find(&events).Error)
	return events
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{UserID: 1, EventType: entities.AuditEventListing, Action: "place_update"}
	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "place_update", saved.Action)
}

func TestService_LogListing(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogListing(7, entities.ListingRef{Type: entities.ListingTypePlace, ID: 3}, "create", "Amala Skye", nil)

	events := waitForEvents(t, db, 1)
	e := events[0]
	assert.Equal(t, uint(7), e.UserID)
	assert.Equal(t, "place_create", e.Action)
	assert.Equal(t, `Create place "Amala Skye"`, e.Description)
	require.NotNil(t, e.EntityID)
	assert.Equal(t, uint(3), *e.EntityID)
	assert.Equal(t, entities.AuditStatusSuccess, e.Status)
}

func TestService_LogListingFailure(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogListing(7, entities.ListingRef{Type: entities.ListingTypeEvent, ID: 1}, "delete", "Owambe", errors.New("locked"))

	events := waitForEvents(t, db, 1)
	assert.Equal(t, entities.AuditStatusFailed, events[0].Status)
	assert.Equal(t, "locked", events[0].ErrorMsg)
}

func TestService_LogRoleChange(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogRoleChange(1, 2, "bisi", entities.UserRoleUser, entities.UserRoleVerifiedReviewer)

	events := waitForEvents(t, db, 1)
	assert.Equal(t, entities.AuditEventRole, events[0].EventType)
	assert.JSONEq(t, `{"from":"user","to":"verified_reviewer"}`, events[0].Metadata)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "new"}))

	n, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events := waitForEvents(t, db, 1)
	assert.Equal(t, "new", events[0].Action)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
