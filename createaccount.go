package main

import (
	"fmt"

	"github.com/gatherhq/gather/internal/models"
	"gorm.io/gorm"
)

type CreateAccountCmd struct {
	Name     string `required:"" help:"display name of the account"`
	Email    string `required:"" help:"email address of the account"`
	Password string `required:"" help:"password of the account"`
}

func (c *CreateAccountCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	account, err := models.NewAccounts(db).Create(c.Name, c.Email, c.Password)
	if err != nil {
		return err
	}
	token, err := models.NewTokens(db).Create(account)
	if err != nil {
		return err
	}
	fmt.Println("actor id:", account.ActorID)
	fmt.Println("access token:", token.AccessToken)
	return nil
}
