package models

import (
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"gorm.io/gorm"
)

// An Actor is a person that hosts and attends activities, writes comments,
// and follows other actors. Every Account owns exactly one Actor; the rest
// of the model references actors, never accounts.
type Actor struct {
	snowflake.ID   `gorm:"primarykey;autoIncrement:false"`
	UpdatedAt      time.Time
	Name           string `gorm:"size:64;uniqueIndex;not null"`
	DisplayName    string `gorm:"size:128;not null"`
	Bio            string `gorm:"type:text"`
	Avatar         string `gorm:"size:255"`
	FollowersCount int32  `gorm:"not null;default:0"`
	FollowingCount int32  `gorm:"not null;default:0"`
	HostedCount    int32  `gorm:"not null;default:0"`
}

type Actors struct {
	db *gorm.DB
}

func NewActors(db *gorm.DB) *Actors {
	return &Actors{db: db}
}

// FindByID returns the actor with the given id.
func (a *Actors) FindByID(id snowflake.ID) (*Actor, error) {
	var actor Actor
	if err := a.db.First(&actor, id).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// Update edits the actor's profile fields.
func (a *Actors) Update(actor *Actor, displayName, bio, avatar string) error {
	return a.db.Model(actor).Updates(map[string]any{
		"display_name": displayName,
		"bio":          bio,
		"avatar":       avatar,
	}).Error
}

// FindByName returns the actor with the given unique name.
func (a *Actors) FindByName(name string) (*Actor, error) {
	var actor Actor
	if err := a.db.Where("name = ?", name).First(&actor).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}
