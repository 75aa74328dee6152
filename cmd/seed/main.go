package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/internal/domain/entity"
	repo "github.com/oksasatya/reach-identity/internal/domain/repository"
	mongoinfra "github.com/oksasatya/reach-identity/internal/infrastructure/mongo"
	pginfra "github.com/oksasatya/reach-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/reach-identity/pkg/helpers"
)

// seed creates an already-verified admin so a fresh deployment has someone to sign in as.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	username := flag.String("username", getenv("SEED_ADMIN_USERNAME", "admin"), "admin username")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password")
	phone := flag.String("phone", cfg.AdminPhoneNumber, "admin phone number")
	flag.Parse()
	if *password == "" {
		log.Fatal("password required (-password or SEED_ADMIN_PASSWORD)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var identities repo.IdentityRepository
	switch cfg.RecordStore {
	case "postgres":
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, time.Hour)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		identities = pginfra.NewIdentityRepository(pool)
	case "mongo":
		client, err := mongoinfra.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		identities = mongoinfra.NewIdentityRepository(client.Database(cfg.MongoDatabase))
	default:
		log.Fatalf("seeding needs RECORD_STORE=postgres or mongo, got %q", cfg.RecordStore)
	}

	if existing, err := identities.FindByUsername(ctx, entity.KindAdmin, *username); err == nil {
		fmt.Printf("admin already present: handle=%s username=%s verified=%v\n", existing.Handle, existing.Username, existing.Verified)
		return
	}

	hash, err := helpers.HashPassword(*password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	handle, err := identities.Insert(ctx, &entity.Identity{
		Kind:     entity.KindAdmin,
		Username: *username,
		Password: hash,
		Phone:    *phone,
	})
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	if err := identities.UpdateVerified(ctx, entity.KindAdmin, handle, true); err != nil {
		log.Fatalf("failed to mark admin verified: %v", err)
	}
	fmt.Printf("seeded admin: handle=%s username=%s\n", handle, *username)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
