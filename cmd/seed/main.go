package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pinterest-ai-studio/internal/config"
	"pinterest-ai-studio/internal/domain/model"
	pg "pinterest-ai-studio/internal/infra/db/postgres"

	"github.com/google/uuid"
)

// Schema DDL, idempotent. Applied before seeding so a fresh database works
// with a single command.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		permissions JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		display_name   TEXT NOT NULL DEFAULT '',
		role_id        TEXT NOT NULL REFERENCES roles(id),
		created_at     TIMESTAMPTZ NOT NULL,
		last_active_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		provider         TEXT NOT NULL,
		secret_encrypted TEXT NOT NULL,
		model_name       TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prompt_templates (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		stage      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pin_templates (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		width      INT NOT NULL,
		height     INT NOT NULL,
		background TEXT NOT NULL DEFAULT '',
		slots      JSONB NOT NULL DEFAULT '[]',
		overlays   JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bulk_jobs (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name            TEXT NOT NULL DEFAULT '',
		description_cfg JSONB NOT NULL,
		content_cfg     JSONB NOT NULL,
		image_cfg       JSONB NOT NULL,
		pin_template_id TEXT REFERENCES pin_templates(id) ON DELETE SET NULL,
		width           INT NOT NULL,
		height          INT NOT NULL,
		total_rows      INT NOT NULL,
		completed_rows  INT NOT NULL DEFAULT 0,
		failed_rows     INT NOT NULL DEFAULT 0,
		status          TEXT NOT NULL,
		error           TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		started_at      TIMESTAMPTZ,
		completed_at    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bulk_rows (
		id           TEXT PRIMARY KEY,
		job_id       TEXT NOT NULL REFERENCES bulk_jobs(id) ON DELETE CASCADE,
		position     INT NOT NULL,
		keywords     TEXT NOT NULL DEFAULT '',
		source_image TEXT NOT NULL DEFAULT '',
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		alt_text     TEXT NOT NULL DEFAULT '',
		quantity     INT NOT NULL DEFAULT 1,
		publish_at   TIMESTAMPTZ,
		status       TEXT NOT NULL,
		error        TEXT NOT NULL DEFAULT '',
		stage_logs   JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bulk_rows_job ON bulk_rows(job_id, position)`,
	`CREATE TABLE IF NOT EXISTS generated_pins (
		id          TEXT PRIMARY KEY,
		row_id      TEXT NOT NULL REFERENCES bulk_rows(id) ON DELETE CASCADE,
		title       TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		keywords    JSONB NOT NULL DEFAULT '[]',
		alt_text    TEXT NOT NULL DEFAULT '',
		image_path  TEXT NOT NULL,
		status      TEXT NOT NULL,
		stage_logs  JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generated_pins_row ON generated_pins(row_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bulk_jobs_user ON bulk_jobs(user_id, created_at DESC)`,
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminEmail := flag.String("admin-email", "admin@example.com", "seeded admin account email")
	adminPassword := flag.String("admin-password", "", "seeded admin account password (required on first run)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("apply schema: %v", err)
		}
	}
	fmt.Println("schema applied")

	roleRepo := pg.NewRoleRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	roles := []*model.Role{
		{
			ID:   uuid.NewString(),
			Name: "admin",
			Permissions: []model.Permission{
				{Module: "*", Action: "*"},
			},
			CreatedAt: time.Now(),
		},
		{
			ID:   uuid.NewString(),
			Name: "editor",
			Permissions: []model.Permission{
				{Module: model.ModuleAPIKeys, Action: "*"},
				{Module: model.ModulePrompts, Action: "*"},
				{Module: model.ModulePinTemplates, Action: "*"},
				{Module: model.ModuleBulkJobs, Action: "*"},
				{Module: model.ModuleExports, Action: model.ActionView},
			},
			CreatedAt: time.Now(),
		},
		{
			ID:   uuid.NewString(),
			Name: "viewer",
			Permissions: []model.Permission{
				{Module: model.ModuleBulkJobs, Action: model.ActionView},
				{Module: model.ModulePinTemplates, Action: model.ActionView},
				{Module: model.ModulePrompts, Action: model.ActionView},
				{Module: model.ModuleExports, Action: model.ActionView},
			},
			CreatedAt: time.Now(),
		},
	}

	for _, role := range roles {
		if existing, err := roleRepo.FindByName(ctx, nil, role.Name); err == nil {
			fmt.Printf("role %q already present (id=%s)\n", role.Name, existing.ID)
			continue
		}
		if err := roleRepo.Save(ctx, nil, role); err != nil {
			log.Fatalf("seed role %q: %v", role.Name, err)
		}
		fmt.Printf("seeded role: %s\n", role.Name)
	}

	if _, err := userRepo.FindByEmail(ctx, nil, *adminEmail); err == nil {
		fmt.Printf("admin %s already present. No changes.\n", *adminEmail)
		return
	}
	if *adminPassword == "" {
		log.Fatal("first run needs -admin-password")
	}

	adminRole, err := roleRepo.FindByName(ctx, nil, "admin")
	if err != nil {
		log.Fatalf("load admin role: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	admin, err := model.NewUser(*adminEmail, string(hash), "Administrator", adminRole.ID)
	if err != nil {
		log.Fatalf("build admin: %v", err)
	}
	if err := userRepo.Save(ctx, nil, admin); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	fmt.Printf("seeded admin: %s (id=%s)\n", admin.Email, admin.ID)
	fmt.Println("Seeding complete.")
}
