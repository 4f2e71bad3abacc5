// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the admin user (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"investaccred/backend/internal/authz"
	authzrepo "investaccred/backend/internal/authz/repository"
	"investaccred/backend/internal/config"
	"investaccred/backend/internal/db"
	"investaccred/backend/internal/security"
	userdomain "investaccred/backend/internal/user/domain"
	userrepo "investaccred/backend/internal/user/repository"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "password123"
	adminUserID   = "dev-admin-001"

	investorEmail    = "investor@example.com"
	investorPassword = "password123"
	investorUserID   = "dev-investor-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	roles := authzrepo.NewPostgresRepository(conn)
	hasher := security.NewHasher(cfg.BcryptCost)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("lookup admin: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", adminEmail)
		return
	}

	now := time.Now().UTC()

	adminHash, err := hasher.Hash([]byte(adminPassword))
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	admin := &userdomain.User{
		ID:             adminUserID,
		Email:          adminEmail,
		Name:           "Dev Admin",
		PasswordHash:   adminHash,
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}
	for _, role := range []string{authz.RoleSuperAdmin, authz.RoleAccreditationReviewer} {
		if err := roles.Grant(ctx, admin.ID, role); err != nil {
			log.Fatalf("grant %s: %v", role, err)
		}
	}

	investorHash, err := hasher.Hash([]byte(investorPassword))
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	investor := &userdomain.User{
		ID:             investorUserID,
		Email:          investorEmail,
		Name:           "Dev Investor",
		Phone:          "+15550100",
		EmailConfirmed: true,
		PasswordHash:   investorHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := users.Create(ctx, investor); err != nil {
		log.Fatalf("create investor: %v", err)
	}

	log.Printf("seed: created %s (roles: superadmin, accreditation_reviewer) and %s", adminEmail, investorEmail)
}
