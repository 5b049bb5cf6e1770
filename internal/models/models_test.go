package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockActor creates a new actor in the database.
func MockActor(t *testing.T, tx *gorm.DB, name string) *Actor {
	t.Helper()
	require := require.New(t)

	actor := &Actor{
		ID:          snowflake.Now(),
		Name:        name,
		DisplayName: name,
	}
	require.NoError(tx.Create(actor).Error)
	return actor
}

// MockActivity creates a new activity hosted by host, scheduled at date.
func MockActivity(t *testing.T, tx *gorm.DB, host *Actor, title string, date time.Time) *Activity {
	t.Helper()
	require := require.New(t)

	activity := &Activity{
		Title:    title,
		Category: "drinks",
		Date:     date,
		City:     "Melbourne",
		Venue:    fmt.Sprintf("The %s Hotel", title),
	}
	require.NoError(NewActivities(tx).Create(activity, host))
	return activity
}

// MockComment appends a comment by actor to the activity's thread.
func MockComment(t *testing.T, tx *gorm.DB, activity *Activity, actor *Actor, body string) *Comment {
	t.Helper()
	require := require.New(t)

	comment, err := NewComments(tx).Create(activity.ID, actor.ID, body)
	require.NoError(err)
	return comment
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	// a single connection keeps the pragma below in force for every query
	sqlDB, err := db.DB()
	require.NoError(err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}
