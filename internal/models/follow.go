package models

import (
	"errors"
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"gorm.io/gorm"
)

// ErrSelfFollow is returned when an actor attempts to follow itself.
var ErrSelfFollow = errors.New("an actor cannot follow itself")

// A Follow records that Actor follows Target.
type Follow struct {
	ActorID   snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Actor     *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetID  snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Target    *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	CreatedAt time.Time
}

// AfterCreate updates the follower and following counts on both actors.
func (f *Follow) AfterCreate(tx *gorm.DB) error {
	return forEach(tx, f.updateFollowersCount, f.updateFollowingCount)
}

// AfterDelete updates the follower and following counts on both actors.
func (f *Follow) AfterDelete(tx *gorm.DB) error {
	return forEach(tx, f.updateFollowersCount, f.updateFollowingCount)
}

// updateFollowersCount updates the followers count of the target.
func (f *Follow) updateFollowersCount(tx *gorm.DB) error {
	target := &Actor{ID: f.TargetID}
	followers := tx.Select("COUNT(*)").Where("target_id = ?", f.TargetID).Table("follows")
	return tx.Model(target).Update("followers_count", followers).Error
}

// updateFollowingCount updates the following count of the actor.
func (f *Follow) updateFollowingCount(tx *gorm.DB) error {
	actor := &Actor{ID: f.ActorID}
	following := tx.Select("COUNT(*)").Where("actor_id = ?", f.ActorID).Table("follows")
	return tx.Model(actor).Update("following_count", following).Error
}

type Follows struct {
	db *gorm.DB
}

func NewFollows(db *gorm.DB) *Follows {
	return &Follows{db: db}
}

// Toggle follows the target if no follow exists, otherwise removes the
// follow. It reports whether the actor follows the target afterwards.
func (f *Follows) Toggle(actor, target *Actor) (following bool, err error) {
	if actor.ID == target.ID {
		return false, ErrSelfFollow
	}
	err = f.db.Transaction(func(tx *gorm.DB) error {
		var follow Follow
		switch err := tx.Take(&follow, "actor_id = ? AND target_id = ?", actor.ID, target.ID).Error; {
		case errors.Is(err, gorm.ErrRecordNotFound):
			following = true
			return tx.Create(&Follow{ActorID: actor.ID, TargetID: target.ID}).Error
		case err != nil:
			return err
		default:
			following = false
			return tx.Delete(&follow).Error
		}
	})
	return following, err
}

// Followers returns the actors following the target.
func (f *Follows) Followers(target *Actor) ([]Actor, error) {
	var actors []Actor
	err := f.db.
		Joins("JOIN follows ON follows.actor_id = actors.id AND follows.target_id = ?", target.ID).
		Find(&actors).Error
	return actors, err
}

// Following returns the actors the actor follows.
func (f *Follows) Following(actor *Actor) ([]Actor, error) {
	var actors []Actor
	err := f.db.
		Joins("JOIN follows ON follows.target_id = actors.id AND follows.actor_id = ?", actor.ID).
		Find(&actors).Error
	return actors, err
}
