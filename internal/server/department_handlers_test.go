package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"accessdesk/internal/config"
	"accessdesk/internal/database"
	"accessdesk/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestListDepartmentMembersReportsPresence(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	s, err := NewServerWithDeps(&config.Config{JWTSecret: "test-secret"}, db, rdb)
	require.NoError(t, err)

	requester, approver, _ := seedHandlerFixtures(t, db)
	var membership models.DepartmentUser
	require.NoError(t, db.Where("user_id = ?", approver.ID).First(&membership).Error)

	// The approver has a live websocket session somewhere in the cluster.
	require.NoError(t, mr.Set(fmt.Sprintf("presence:last_seen:%d", approver.ID), "1"))

	app := newTestApp(requester.ID, func(app *fiber.App) {
		app.Get("/api/departments/:id/members", s.ListDepartmentMembers)
	})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/departments/%d/members", membership.DepartmentID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var members []struct {
		UserID uint `json:"user_id"`
		Online bool `json:"online"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&members))
	require.Len(t, members, 2)

	byUser := make(map[uint]bool, len(members))
	for _, m := range members {
		byUser[m.UserID] = m.Online
	}
	assert.True(t, byUser[approver.ID])
	assert.False(t, byUser[requester.ID])
}
