package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gatherhq/gather/internal/algorithms"
	"github.com/gatherhq/gather/internal/httpx"
	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/to"
	"gorm.io/gorm"
)

// ProfilesShow returns the profile of a single actor.
func ProfilesShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	_, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	actor, err := models.NewActors(env.DB).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	serialise := Serialiser{}
	return to.JSON(w, serialise.Profile(actor))
}

// ProfilesUpdate edits the caller's own profile.
func ProfilesUpdate(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	var params struct {
		DisplayName string `json:"display_name" schema:"display_name"`
		Bio         string `json:"bio" schema:"bio"`
		Avatar      string `json:"avatar" schema:"avatar"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.DisplayName == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("display_name is required"))
	}
	actors := models.NewActors(env.DB)
	if err := actors.Update(account.Actor, params.DisplayName, params.Bio, params.Avatar); err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	actor, err := actors.FindByID(account.ActorID)
	if err != nil {
		return err
	}
	serialise := Serialiser{}
	return to.JSON(w, serialise.Profile(actor))
}

// ProfilesFollow toggles whether the caller follows the target actor.
func ProfilesFollow(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	target, err := models.NewActors(env.DB).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	following, err := models.NewFollows(env.DB).Toggle(account.Actor, target)
	if err != nil {
		if errors.Is(err, models.ErrSelfFollow) {
			return httpx.Error(http.StatusBadRequest, err)
		}
		return err
	}
	return to.JSON(w, map[string]any{
		"following": following,
	})
}

// ProfilesFollowers lists the actors following the target.
func ProfilesFollowers(env *Env, w http.ResponseWriter, r *http.Request) error {
	return profilesFollowList(env, w, r, models.NewFollows(env.DB).Followers)
}

// ProfilesFollowing lists the actors the target follows.
func ProfilesFollowing(env *Env, w http.ResponseWriter, r *http.Request) error {
	return profilesFollowList(env, w, r, models.NewFollows(env.DB).Following)
}

func profilesFollowList(env *Env, w http.ResponseWriter, r *http.Request, list func(*models.Actor) ([]models.Actor, error)) error {
	_, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	actor, err := models.NewActors(env.DB).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	actors, err := list(actor)
	if err != nil {
		return err
	}
	serialise := Serialiser{}
	return to.JSON(w, algorithms.Map(actors, func(a models.Actor) Profile {
		return serialise.Profile(&a)
	}))
}

// ProfilesActivities lists the activities an actor attends or hosts:
// filter=future (the default), past, or hosting.
func ProfilesActivities(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	db := env.DB.WithContext(r.Context()).
		Joins("JOIN memberships ON memberships.activity_id = activities.id AND memberships.actor_id = ?", id).
		Preload("Memberships").
		Preload("Memberships.Actor")
	now := time.Now()
	switch r.URL.Query().Get("filter") {
	case "past":
		db = db.Where("activities.date < ?", now).Order("activities.date desc, activities.id desc")
	case "hosting":
		db = db.Where("memberships.host = ?", true).Order("activities.date asc, activities.id asc")
	default:
		db = db.Where("activities.date >= ?", now).Order("activities.date asc, activities.id asc")
	}
	var activities []models.Activity
	if err := db.Find(&activities).Error; err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	serialise := Serialiser{actorID: account.ActorID}
	return to.JSON(w, algorithms.Map(activities, serialise.Activity))
}
