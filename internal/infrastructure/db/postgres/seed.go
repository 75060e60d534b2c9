package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/silverback/internal/domain"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

type seedCode struct {
	Code string
	Name string
}

var referenceCodes = map[string][]seedCode{
	domain.CodeTypeUserStatuses: {
		{domain.StatusRegistered, "Registered"},
		{domain.StatusCompleteRegistration, "Complete registration"},
		{domain.StatusBlocked, "Blocked"},
	},
	domain.CodeTypeLanguages: {
		{"EN", "English"},
		{"NL", "Dutch"},
		{"FR", "French"},
	},
}

var referenceCodeTypeNames = map[string]string{
	domain.CodeTypeUserStatuses: "User statuses",
	domain.CodeTypeLanguages:    "Languages",
}

// SeedCodes inserts the reference code types and codes. Existing rows are
// left untouched, so it runs on every boot.
func SeedCodes(ctx context.Context, db *sql.DB) error {
	for _, ct := range []string{domain.CodeTypeUserStatuses, domain.CodeTypeLanguages} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO code_types (id, code, name) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
			uuid.NewString(), ct, referenceCodeTypeNames[ct],
		); err != nil {
			return fmt.Errorf("seed code type %s: %w", ct, err)
		}

		for _, c := range referenceCodes[ct] {
			if _, err := db.ExecContext(ctx, `
INSERT INTO codes (id, code_type_id, code, name)
SELECT $1, id, $3, $4 FROM code_types WHERE code = $2
ON CONFLICT (code_type_id, code) DO NOTHING`,
				uuid.NewString(), ct, c.Code, c.Name,
			); err != nil {
				return fmt.Errorf("seed code %s/%s: %w", ct, c.Code, err)
			}
		}
	}
	zlog.Info().Msg("[seed] reference codes seeded")
	return nil
}

// SeedUsers creates one account per role for local development.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher) {
	type seedUser struct {
		Email string
		First string
		Role  string
		Pass  string
	}

	seeds := []seedUser{
		{Email: "superuser@silverback.local", First: "Super", Role: domain.RoleSuperuser, Pass: "SuperuserPassword123!"},
		{Email: "admin@silverback.local", First: "Admin", Role: domain.RoleAdmin, Pass: "AdminPassword123!"},
		{Email: "user@silverback.local", First: "User", Role: domain.RoleUser, Pass: "UserPassword123!"},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			zlog.Warn().Err(err).Str("email", s.Email).Msg("[seed] hash failed")
			continue
		}

		u := domain.User{
			ID:           uuid.NewString(),
			Email:        s.Email,
			FirstName:    s.First,
			LastName:     "Seed",
			PasswordHash: hash,
			Role:         s.Role,
			Status:       domain.StatusRegistered,
		}

		if _, err := repo.Create(ctx, u); err != nil {
			// duplicates are expected on restart
			continue
		}
		created++
	}

	zlog.Info().Int("created", created).Msg("[seed] dev users seeded")
}
