package models

import (
	"errors"
	"strings"

	"github.com/gatherhq/gather/internal/snowflake"
	"gorm.io/gorm"
)

// ErrEmptyBody is returned when a comment with no body is submitted.
var ErrEmptyBody = errors.New("comment body must not be empty")

// A Comment is a single message on an activity's discussion thread.
// Comments are immutable and append only; their IDs are creation time
// ordered, so ordering by ID is creation order.
type Comment struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	ActivityID   snowflake.ID `gorm:"index;not null"`
	Activity     *Activity    `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	ActorID      snowflake.ID `gorm:"not null"`
	Actor        *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Body         string       `gorm:"type:text;not null"`
}

type Comments struct {
	db *gorm.DB
}

func NewComments(db *gorm.DB) *Comments {
	return &Comments{db: db}
}

// Create appends a comment to the activity's thread and returns it with the
// author loaded.
func (c *Comments) Create(activityID, actorID snowflake.ID, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	comment := Comment{
		ID:         snowflake.Now(),
		ActivityID: activityID,
		ActorID:    actorID,
		Body:       body,
	}
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var activity Activity
		if err := tx.Select("id").First(&activity, activityID).Error; err != nil {
			return err
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	if err := c.db.Preload("Actor").First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ForActivity returns the activity's comments in creation order.
func (c *Comments) ForActivity(activityID snowflake.ID) ([]Comment, error) {
	var comments []Comment
	err := c.db.Scopes(OrderComments).
		Preload("Actor").
		Find(&comments, "activity_id = ?", activityID).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
