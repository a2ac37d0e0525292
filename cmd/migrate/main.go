// Command migrate manages the inspections database schema.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"visara/internal/config"
)

const usage = `usage: migrate <command>

commands:
  up        apply all pending migrations
  down      revert all migrations
  steps N   apply N migrations (negative N reverts)
  force V   mark the schema as version V without running anything,
            to recover from a dirty state
  version   print the current schema version`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	m, err := migrate.New("file://db/migrations", cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		return report(m, "schema is up to date")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Println("all migrations reverted")
		return nil

	case "steps":
		n, err := intArg(args, "steps")
		if err != nil {
			return err
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate steps %d: %w", n, err)
		}
		return report(m, fmt.Sprintf("applied %d step(s)", n))

	case "force":
		v, err := intArg(args, "force")
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("migrate force %d: %w", v, err)
		}
		log.Printf("schema version forced to %d", v)
		return nil

	case "version":
		return report(m, "")

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func intArg(args []string, cmd string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a number argument", cmd)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s argument %q", cmd, args[1])
	}
	return n, nil
}

func report(m *migrate.Migrate, note string) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Println("schema version: none (no migrations applied)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if note != "" {
		log.Println(note)
	}
	log.Printf("schema version: %d (dirty: %v)", version, dirty)
	return nil
}
