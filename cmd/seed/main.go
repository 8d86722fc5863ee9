// Command seed creates a handful of demo events with their seat grids and a
// demo user.  Running it twice is harmless.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/config"
	"github.com/iliyamo/seat-booking-service/internal/database"
	"github.com/iliyamo/seat-booking-service/internal/logger"
	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/repository"
	"github.com/iliyamo/seat-booking-service/internal/service"
)

var demoEvents = []struct {
	name     string
	location string
	typ      model.ResourceType
}{
	{"Jazz Night", "Main Hall", model.ResourceEvent},
	{"Indie Film Premiere", "Screen 1", model.ResourceMovie},
	{"Tech Talk: Scaling Go", "Auditorium B", model.ResourceEvent},
	{"String Quartet", "Chamber Room", model.ResourceEvent},
	{"Stand-up Evening", "Basement Stage", model.ResourceEvent},
}

func main() {
	email := flag.String("user", "demo@example.com", "email of the demo user")
	capacity := flag.Int("capacity", 100, "capacity of each demo event")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()
	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zlog.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal("migrations failed", zap.Error(err))
	}

	resources := repository.NewResourceRepo(db)
	prov := service.NewProvisioner(db, resources, repository.NewSeatRepo(db), zlog)

	start := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Hour)
	for i, ev := range demoEvents {
		s := start.Add(time.Duration(i) * 24 * time.Hour)
		end := s.Add(3 * time.Hour)
		desc := fmt.Sprintf("Demo event %d", i+1)
		loc := ev.location
		cp := *capacity
		res := &model.Resource{
			Name:        ev.name,
			Type:        ev.typ,
			Description: &desc,
			Location:    &loc,
			Capacity:    &cp,
			StartTime:   &s,
			EndTime:     &end,
			IsActive:    true,
		}
		created, err := prov.ProvisionResource(ctx, res)
		if err != nil {
			zlog.Fatal("seed resource failed", zap.String("name", ev.name), zap.Error(err))
		}
		zlog.Info("resource", zap.Uint64("id", res.ID), zap.String("name", res.Name), zap.Bool("created", created))
	}

	n, err := prov.EnsureSeats(ctx)
	if err != nil {
		zlog.Fatal("seat grid generation failed", zap.Error(err))
	}
	if n > 0 {
		zlog.Info("filled missing seat grids", zap.Int("resources", n))
	}

	uid, err := repository.NewUserRepo(db).Ensure(ctx, *email)
	if err != nil {
		zlog.Fatal("seed user failed", zap.Error(err))
	}
	zlog.Info("demo user", zap.Uint64("id", uid), zap.String("email", *email))
}
