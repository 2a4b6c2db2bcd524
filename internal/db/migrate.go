package db

import (
	"context"
	"embed"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// Migrate applies the embedded migrations up to version, or all of them
// when version is "latest".
func Migrate(ctx context.Context, connectionURL string, version string) (err error) {
	db, err := goose.OpenDBWithDriver("postgres", connectionURL)
	if err != nil {
		return fmt.Errorf("failed to connect with database: %w", err)
	}

	defer func() {
		if dbErr := db.Close(); dbErr != nil {
			if err == nil {
				err = fmt.Errorf("failed to close database connection: %w", dbErr)
			} else {
				err = fmt.Errorf("multiple errors occurred: %w, %s", err, dbErr)
			}
		}
	}()

	goose.SetBaseFS(Migrations)
	if err = goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if version == "latest" {
		return goose.UpContext(ctx, db, "migrations")
	}
	versionInt, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}
	return goose.UpToContext(ctx, db, "migrations", versionInt)
}
