package models

import (
	"context"
	"errors"
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"gorm.io/gorm"
)

// ErrNoRowsUpdated is returned when a write completes without touching any
// rows. Callers treat this as a persistence failure even though no domain
// rule was violated.
var ErrNoRowsUpdated = errors.New("no rows updated")

// An Activity is a scheduled, time bounded gathering. An Activity owns its
// Memberships and Comments; deleting the activity removes both.
type Activity struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Title        string    `gorm:"size:128;not null"`
	Description  string    `gorm:"type:text"`
	Category     string    `gorm:"size:32;not null"`
	Date         time.Time `gorm:"index;not null"`
	City         string    `gorm:"size:64"`
	Venue        string    `gorm:"size:128"`
	Latitude     float64
	Longitude    float64
	Cancelled    bool         `gorm:"not null;default:false"`
	Memberships  []Membership `gorm:"constraint:OnDelete:CASCADE;"`
	Comments     []Comment    `gorm:"constraint:OnDelete:CASCADE;"`
}

// A Membership records one actor's attendance of one activity. Exactly one
// membership per activity carries the host flag; it is created together
// with the activity and never removed or reassigned.
type Membership struct {
	ActivityID snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	ActorID    snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Actor      *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Host       bool         `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

// AfterCreate updates the hosted count on the actor.
func (m *Membership) AfterCreate(tx *gorm.DB) error {
	return m.updateHostedCount(tx)
}

// AfterDelete updates the hosted count on the actor.
func (m *Membership) AfterDelete(tx *gorm.DB) error {
	return m.updateHostedCount(tx)
}

func (m *Membership) updateHostedCount(tx *gorm.DB) error {
	if !m.Host {
		return nil
	}
	actor := &Actor{ID: m.ActorID}
	hosted := tx.Select("COUNT(*)").Where("actor_id = ? AND host = ?", m.ActorID, true).Table("memberships")
	return tx.Model(actor).Update("hosted_count", hosted).Error
}

type Activities struct {
	db *gorm.DB
}

func NewActivities(db *gorm.DB) *Activities {
	return &Activities{db: db}
}

// Create stores the activity and the creator's host membership in a single
// transaction.
func (a *Activities) Create(activity *Activity, host *Actor) error {
	if activity.ID == 0 {
		activity.ID = snowflake.Now()
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(activity).Error; err != nil {
			return err
		}
		return tx.Create(&Membership{
			ActivityID: activity.ID,
			ActorID:    host.ID,
			Host:       true,
		}).Error
	})
}

// Find returns the activity with its memberships and their actors loaded.
func (a *Activities) Find(ctx context.Context, id snowflake.ID) (*Activity, error) {
	var activity Activity
	err := a.db.WithContext(ctx).
		Preload("Memberships").
		Preload("Memberships.Actor").
		First(&activity, id).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// Feed returns one page of the activity feed and the cursor for the next
// page. The cursor is nil when the feed is exhausted. The read runs under
// ctx and is aborted without side effects if ctx is cancelled.
func (a *Activities) Feed(ctx context.Context, opts FeedOptions, limit int) ([]Activity, *time.Time, error) {
	var activities []Activity
	err := a.db.WithContext(ctx).
		Scopes(PaginateActivities(opts, time.Now())).
		Preload("Memberships").
		Preload("Memberships.Actor").
		Limit(limit + 1).
		Find(&activities).Error
	if err != nil {
		return nil, nil, err
	}
	// one extra row was fetched; its date becomes the next cursor
	if len(activities) > limit {
		next := activities[limit].Date
		return activities[:limit], &next, nil
	}
	return activities, nil, nil
}

// ToggleAttendance applies the single attendance transition for the actor:
// a stranger joins, a participant leaves, and the host flips the activity's
// cancelled flag. The whole transition is one atomic write; concurrent
// toggles on the same activity resolve last write wins.
func (a *Activities) ToggleAttendance(activityID, actorID snowflake.ID) error {
	return a.db.Transaction(func(tx *gorm.DB) error {
		var activity Activity
		if err := tx.Preload("Memberships").First(&activity, activityID).Error; err != nil {
			return err
		}
		var attendance *Membership
		for i := range activity.Memberships {
			if activity.Memberships[i].ActorID == actorID {
				attendance = &activity.Memberships[i]
			}
		}
		var res *gorm.DB
		switch {
		case attendance == nil:
			res = tx.Create(&Membership{
				ActivityID: activity.ID,
				ActorID:    actorID,
			})
		case attendance.Host:
			res = tx.Model(&activity).Update("cancelled", !activity.Cancelled)
		default:
			res = tx.Delete(attendance)
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoRowsUpdated
		}
		return nil
	})
}

// IsHost reports whether the actor holds the host membership for the
// activity. Missing memberships deny silently. The read runs in its own
// session so it cannot leak clauses into a caller that reloads and saves
// the activity during the same request.
func IsHost(db *gorm.DB, activityID, actorID snowflake.ID) bool {
	var membership Membership
	err := db.Session(&gorm.Session{NewDB: true}).
		Take(&membership, "activity_id = ? AND actor_id = ?", activityID, actorID).Error
	return err == nil && membership.Host
}
