package models

import (
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"gorm.io/gorm"
)

// pagination support for the activity feed.
//
// The feed is keyset paginated: the cursor is the scheduled date of the
// first row of the next page, never a row offset, so concurrent inserts and
// deletes elsewhere in the feed cannot shift already issued cursors.

// Feed filter values. Anything else degrades to no filtering.
const (
	FilterIsGoing = "isGoing"
	FilterIsHost  = "isHost"
)

// FeedOptions selects the working set of a feed query.
type FeedOptions struct {
	// Cursor resumes the feed from a previous page. When nil the feed
	// starts at StartDate.
	Cursor *time.Time
	// StartDate is the start of the working set when no cursor is
	// supplied. When nil the feed starts now.
	StartDate *time.Time
	// Filter optionally narrows the feed to activities the actor attends
	// (FilterIsGoing) or hosts (FilterIsHost).
	Filter  string
	ActorID snowflake.ID
}

// PaginateActivities restricts db to the feed working set: ascending by
// scheduled date from the cursor, ties broken by id so the order is stable
// across pages.
func PaginateActivities(opts FeedOptions, now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		from := now
		if opts.StartDate != nil {
			from = *opts.StartDate
		}
		if opts.Cursor != nil {
			from = *opts.Cursor
		}
		db = db.Where("activities.date >= ?", from)
		switch opts.Filter {
		case FilterIsGoing:
			db = db.Joins("JOIN memberships ON memberships.activity_id = activities.id AND memberships.actor_id = ?", opts.ActorID)
		case FilterIsHost:
			db = db.Joins("JOIN memberships ON memberships.activity_id = activities.id AND memberships.actor_id = ? AND memberships.host = ?", opts.ActorID, true)
		}
		return db.Order("activities.date asc, activities.id asc")
	}
}

// OrderComments orders comments in creation order.
func OrderComments(db *gorm.DB) *gorm.DB {
	return db.Order("comments.id asc")
}
