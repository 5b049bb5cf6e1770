package models

import (
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// A Token is a bearer access token for an Account.
type Token struct {
	AccessToken string `gorm:"size:64;primaryKey;autoIncrement:false"`
	CreatedAt   time.Time
	AccountID   snowflake.ID
	Account     *Account `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}

type Tokens struct {
	db *gorm.DB
}

func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// Create issues a new bearer token for the account.
func (t *Tokens) Create(account *Account) (*Token, error) {
	token := Token{
		AccessToken: uuid.New().String(),
		AccountID:   account.ID,
	}
	if err := t.db.Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
