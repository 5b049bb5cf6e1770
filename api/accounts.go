package api

import (
	"errors"
	"net/http"

	"github.com/gatherhq/gather/internal/httpx"
	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/to"
	"gorm.io/gorm"
)

// AccountsCreate registers a new account and its actor.
func AccountsCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Name     string `json:"name" schema:"name"`
		Email    string `json:"email" schema:"email"`
		Password string `json:"password" schema:"password"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Name == "" || params.Email == "" || params.Password == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("name, email and password are required"))
	}
	account, err := models.NewAccounts(env.DB).Create(params.Name, params.Email, params.Password)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	serialise := Serialiser{}
	return to.JSON(w, serialise.Profile(account.Actor))
}

// TokenCreate issues a bearer token for an email and password pair.
func TokenCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Email    string `json:"email" schema:"email"`
		Password string `json:"password" schema:"password"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	account, err := models.NewAccounts(env.DB).FindByEmail(params.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusUnauthorized, errors.New("invalid email or password"))
		}
		return err
	}
	if !account.CheckPassword(params.Password) {
		return httpx.Error(http.StatusUnauthorized, errors.New("invalid email or password"))
	}
	token, err := models.NewTokens(env.DB).Create(account)
	if err != nil {
		return err
	}
	return to.JSON(w, map[string]any{
		"access_token": token.AccessToken,
		"token_type":   "Bearer",
	})
}

// VerifyCredentials returns the profile of the authenticated caller.
func VerifyCredentials(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	serialise := Serialiser{}
	return to.JSON(w, serialise.Profile(account.Actor))
}
