package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gatherhq/gather/internal/algorithms"
	"github.com/gatherhq/gather/internal/httpx"
	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/to"
	"gorm.io/gorm"
)

type feedRequest struct {
	Cursor    string `schema:"cursor"`
	StartDate string `schema:"start_date"`
	Limit     int    `schema:"limit"`
	Filter    string `schema:"filter"`
}

type feedResponse struct {
	Items      []Activity `json:"items"`
	NextCursor *string    `json:"next_cursor"`
}

// ActivitiesIndex returns one page of the activity feed.
func ActivitiesIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	var params feedRequest
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	opts := models.FeedOptions{
		Filter:  params.Filter,
		ActorID: account.ActorID,
	}
	if params.Cursor != "" {
		cursor, err := time.Parse(time.RFC3339, params.Cursor)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, err)
		}
		opts.Cursor = &cursor
	}
	if params.StartDate != "" {
		start, err := time.Parse(time.RFC3339, params.StartDate)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, err)
		}
		opts.StartDate = &start
	}
	limit := params.Limit
	switch {
	case limit > 40:
		limit = 40
	case limit <= 0:
		limit = 20
	}

	activities, next, err := models.NewActivities(env.DB).Feed(r.Context(), opts, limit)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	var nextCursor *string
	if next != nil {
		// full precision: rounding the cursor down would re-select rows
		// already returned
		cursor := next.UTC().Format(time.RFC3339Nano)
		nextCursor = &cursor
	}
	serialise := Serialiser{actorID: account.ActorID}
	return to.JSON(w, feedResponse{
		Items:      algorithms.Map(activities, serialise.Activity),
		NextCursor: nextCursor,
	})
}

// ActivitiesShow returns a single activity view.
func ActivitiesShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	activity, err := models.NewActivities(env.DB).Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	serialise := Serialiser{actorID: account.ActorID}
	return to.JSON(w, serialise.Activity(*activity))
}

type activityParams struct {
	Title       string  `json:"title" schema:"title"`
	Description string  `json:"description" schema:"description"`
	Category    string  `json:"category" schema:"category"`
	Date        string  `json:"date" schema:"date"`
	City        string  `json:"city" schema:"city"`
	Venue       string  `json:"venue" schema:"venue"`
	Latitude    float64 `json:"latitude" schema:"latitude"`
	Longitude   float64 `json:"longitude" schema:"longitude"`
}

func (p *activityParams) validate() (time.Time, error) {
	if p.Title == "" {
		return time.Time{}, errors.New("title is required")
	}
	if p.Category == "" {
		return time.Time{}, errors.New("category is required")
	}
	date, err := time.Parse(time.RFC3339, p.Date)
	if err != nil {
		return time.Time{}, errors.New("date must be RFC 3339")
	}
	return date, nil
}

// ActivitiesCreate creates an activity hosted by the caller.
func ActivitiesCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	var params activityParams
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	date, err := params.validate()
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if params.Latitude == 0 && params.Longitude == 0 && params.Venue != "" && env.Geo != nil {
		if loc, err := env.Geo.Resolve(r.Context(), params.City, params.Venue); err == nil {
			params.Latitude, params.Longitude = loc.Latitude, loc.Longitude
		} else {
			log.Printf("geocode: %v", err)
		}
	}
	activity := models.Activity{
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Date:        date,
		City:        params.City,
		Venue:       params.Venue,
		Latitude:    params.Latitude,
		Longitude:   params.Longitude,
	}
	if err := models.NewActivities(env.DB).Create(&activity, account.Actor); err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	return to.JSON(w, map[string]any{
		"id": activity.ID.String(),
	})
}

// ActivitiesUpdate edits an activity. Only the host may edit.
func ActivitiesUpdate(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if !models.IsHost(env.DB, id, account.ActorID) {
		return httpx.Error(http.StatusForbidden, errors.New("not permitted"))
	}
	var params activityParams
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	date, err := params.validate()
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}

	var activity models.Activity
	if err := env.DB.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	res := env.DB.Model(&activity).Updates(map[string]any{
		"title":       params.Title,
		"description": params.Description,
		"category":    params.Category,
		"date":        date,
		"city":        params.City,
		"venue":       params.Venue,
		"latitude":    params.Latitude,
		"longitude":   params.Longitude,
	})
	if res.Error != nil {
		return httpx.Error(http.StatusBadRequest, res.Error)
	}
	if res.RowsAffected == 0 {
		return httpx.Error(http.StatusBadRequest, models.ErrNoRowsUpdated)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// ActivitiesDestroy deletes an activity and everything it owns. Only the
// host may delete.
func ActivitiesDestroy(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if !models.IsHost(env.DB, id, account.ActorID) {
		return httpx.Error(http.StatusForbidden, errors.New("not permitted"))
	}
	res := env.DB.Delete(&models.Activity{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httpx.Error(http.StatusNotFound, errors.New("activity not found"))
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// ActivitiesAttend toggles the caller's attendance of an activity. The host
// cannot leave; for the host the activity's cancelled flag is flipped
// instead.
func ActivitiesAttend(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	err = models.NewActivities(env.DB).ToggleAttendance(id, account.ActorID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Error(http.StatusNotFound, err)
	case err != nil:
		return httpx.Error(http.StatusBadRequest, err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
