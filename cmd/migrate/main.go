package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		env.GetEnv("DB_USER", "formfox"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "formfox_db"),
	)

	// never log the password
	log.Infof("[Migrate] Connecting to %s@%s:%s/%s",
		env.GetEnv("DB_USER", "formfox"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "formfox_db"),
	)

	m, err := migrate.New("file://"+env.GetEnv("MIGRATIONS_PATH", "migrations"), dbURL)
	if err != nil {
		log.Fatalf("[Migrate] Initialisation failed: %v", err)
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Errorf("[Migrate] Closing resources failed: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Info("[Migrate] No change: database is up to date")
		case err != nil:
			log.Fatalf("[Migrate] Up failed: %v", err)
		default:
			log.Info("[Migrate] Migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("[Migrate] Rolling back the last migration failed: %v", err)
		}
		log.Info("[Migrate] Last migration rolled back")

	case "goto", "force":
		if len(os.Args) < 3 {
			log.Fatalf("[Migrate] %s needs a version number", command)
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("[Migrate] Invalid version: %v", err)
		}

		if command == "force" {
			if err := m.Force(int(version)); err != nil {
				log.Fatalf("[Migrate] Forcing version %d failed: %v", version, err)
			}
			log.Infof("[Migrate] Version forced to %d", version)
			return
		}

		err = m.Migrate(uint(version))
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Infof("[Migrate] No change: database is already at version %d", version)
		case err != nil:
			log.Fatalf("[Migrate] Migrating to version %d failed: %v", version, err)
		default:
			log.Infof("[Migrate] Migrated to version %d", version)
		}

	case "status":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info("[Migrate] No migrations applied yet")
				return
			}
			log.Fatalf("[Migrate] Reading the version failed: %v", err)
		}
		dirtyStatus := ""
		if dirty {
			dirtyStatus = " (dirty)"
		}
		log.Infof("[Migrate] Current version: %d%s", version, dirtyStatus)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up       - apply all pending migrations")
	fmt.Println("  down     - roll back the last migration")
	fmt.Println("  goto N   - migrate to version N")
	fmt.Println("  force N  - set version N without running migrations")
	fmt.Println("  status   - show the current version")
}
