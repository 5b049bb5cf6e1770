// Package api implements the HTTP and websocket surface of the gather
// service.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gatherhq/gather/internal/geo"
	"github.com/gatherhq/gather/internal/httpx"
	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/realtime"
	"github.com/gatherhq/gather/internal/snowflake"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type Env struct {
	// DB is the database connection.
	DB *gorm.DB
	// Registry fans comments out to websocket subscribers, one topic per
	// activity.
	Registry *realtime.Registry[snowflake.ID]
	// Geo resolves venue addresses to coordinates. Optional.
	Geo *geo.Client
}

// authenticate authenticates the bearer token attached to the request and,
// if successful, returns the account associated with the token.
func (e *Env) authenticate(r *http.Request) (*models.Account, error) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	var token models.Token
	if err := e.DB.Joins("Account").Preload("Account.Actor").First(&token, "access_token = ?", bearer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.Error(http.StatusUnauthorized, err)
		}
		return nil, err
	}
	return token.Account, nil
}

// pathID extracts a snowflake id from the request path.
func pathID(r *http.Request, param string) (snowflake.ID, error) {
	id, err := snowflake.Parse(chi.URLParam(r, param))
	if err != nil {
		return 0, httpx.Error(http.StatusNotFound, errors.New(param+" not found"))
	}
	return id, nil
}
