package models

import (
	"time"

	"github.com/gatherhq/gather/internal/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// An Account is a login identity. An Account owns one Actor.
type Account struct {
	snowflake.ID      `gorm:"primarykey;autoIncrement:false"`
	UpdatedAt         time.Time
	ActorID           snowflake.ID
	Actor             *Actor `gorm:"constraint:OnDelete:CASCADE;<-:create;"`
	Email             string `gorm:"size:64;uniqueIndex;not null"`
	EncryptedPassword []byte `gorm:"size:60;not null"`
}

type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// Create creates an account and its actor in a single transaction.
func (a *Accounts) Create(name, email, password string) (*Account, error) {
	passwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account := Account{
		ID: snowflake.Now(),
		Actor: &Actor{
			ID:          snowflake.Now(),
			Name:        name,
			DisplayName: name,
		},
		Email:             email,
		EncryptedPassword: passwd,
	}
	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account.Actor).Error; err != nil {
			return err
		}
		account.ActorID = account.Actor.ID
		return tx.Omit("Actor").Create(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail returns the account with the given email, with its actor loaded.
func (a *Accounts) FindByEmail(email string) (*Account, error) {
	var account Account
	if err := a.db.Joins("Actor").Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// CheckPassword reports whether password matches the account's stored hash.
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.EncryptedPassword, []byte(password)) == nil
}
