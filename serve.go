package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherhq/gather/api"
	"github.com/gatherhq/gather/internal/geo"
	"github.com/gatherhq/gather/internal/realtime"
	"github.com/gatherhq/gather/internal/snowflake"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ServeCmd struct {
	Addr     string `default:"localhost:8080" help:"address to listen"`
	Geocoder string `help:"base URL of a Nominatim geocoder, blank to disable"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	if err := configureDB(db); err != nil {
		return err
	}

	env := &api.Env{
		DB:       db,
		Registry: realtime.NewRegistry[snowflake.ID](),
	}
	if s.Geocoder != "" {
		env.Geo = geo.NewClient(s.Geocoder)
	}

	c := chi.NewRouter()
	c.Use(middleware.RequestID)
	c.Use(middleware.RealIP)
	c.Use(middleware.Logger)
	c.Use(middleware.Recoverer)
	c.Mount("/", api.Handler(env))

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      c,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	sig, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sig)
	g.Go(func() error {
		<-gctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return svr.Shutdown(shutdown)
	})
	g.Go(func() error {
		if err := svr.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return g.Wait()
}
