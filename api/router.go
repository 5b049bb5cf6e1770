package api

import (
	"net/http"

	"github.com/gatherhq/gather/internal/httpx"
	"github.com/go-chi/chi/v5"
)

// Handler returns the route table for the service.
func Handler(env *Env) http.Handler {
	envFn := func(*http.Request) *Env { return env }
	h := func(fn func(*Env, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
		return httpx.HandlerFunc(envFn, fn)
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", h(AccountsCreate))
		r.Get("/accounts/verify_credentials", h(VerifyCredentials))
		r.Post("/token", h(TokenCreate))

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", h(ActivitiesIndex))
			r.Post("/", h(ActivitiesCreate))
			r.Get("/comments/stream", h(CommentsStream))
			r.Get("/{id:[0-9]+}", h(ActivitiesShow))
			r.Put("/{id:[0-9]+}", h(ActivitiesUpdate))
			r.Delete("/{id:[0-9]+}", h(ActivitiesDestroy))
			r.Post("/{id:[0-9]+}/attend", h(ActivitiesAttend))
			r.Get("/{id:[0-9]+}/comments", h(CommentsIndex))
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Put("/", h(ProfilesUpdate))
			r.Get("/{id:[0-9]+}", h(ProfilesShow))
			r.Post("/{id:[0-9]+}/follow", h(ProfilesFollow))
			r.Get("/{id:[0-9]+}/followers", h(ProfilesFollowers))
			r.Get("/{id:[0-9]+}/following", h(ProfilesFollowing))
			r.Get("/{id:[0-9]+}/activities", h(ProfilesActivities))
		})
	})
	return r
}
