// Package testutil provides an in-memory database and fixtures for service
// and handler tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/utils"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps the memory database alive for the whole test.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return &database.DB{DB: gdb}
}

var userSeq int

// CreateUser inserts an active user with the given role and password "secret123"
func CreateUser(t testing.TB, db *database.DB, role models.Role, name string) *models.UserAuth {
	t.Helper()

	hash, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	userSeq++
	user := &models.UserAuth{
		Username:  fmt.Sprintf("%s%d", name, userSeq),
		Email:     fmt.Sprintf("%s%d@csps.test", name, userSeq),
		Password:  hash,
		FirstName: name,
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// ActorFor returns the workflow actor for user
func ActorFor(user *models.UserAuth) workflow.Actor {
	return workflow.Actor{ID: user.ID, Role: user.Role}
}

// CreateMission inserts a planned CSPS mission, optionally owned by ownerID
func CreateMission(t testing.TB, db *database.DB, title string, ownerID *string) *models.Mission {
	t.Helper()

	m := &models.Mission{
		Title:   title,
		Client:  "ACME",
		Address: "1 rue du Chantier, Lyon",
		Date:    time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Time:    "09:00",
		Type:    models.MissionTypeCSPS,
		Status:  models.MissionStatusPlanned,
		UserID:  ownerID,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create mission: %v", err)
	}
	return m
}
