// Package migrate applies the embedded SQL migrations with golang-migrate.
package migrate

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Directions accepted by Run.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var (
	// ErrNoChange is returned by callers that want to distinguish "already at
	// target"; Run itself treats it as success.
	ErrNoChange = migrate.ErrNoChange
	// ErrDSNRequired is returned when the database url is empty.
	ErrDSNRequired = errors.New("migrate: database url is required")
	// ErrInvalidDirection is returned for anything other than up or down.
	ErrInvalidDirection = errors.New("migrate: direction must be up or down")
)

//go:embed migrations/*.sql
var files embed.FS

// Run applies every migration in direction against dsn, a postgres:// url.
func Run(dsn, direction string) error {
	if strings.TrimSpace(dsn) == "" {
		return ErrDSNRequired
	}
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("%w, got %q", ErrInvalidDirection, direction)
	}

	source, err := iofs.New(files, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == DirectionUp {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Versions lists the embedded migration versions in order.
func Versions() ([]uint, error) {
	source, err := iofs.New(files, "migrations")
	if err != nil {
		return nil, err
	}
	defer source.Close()

	v, err := source.First()
	if err != nil {
		return nil, err
	}

	versions := []uint{v}
	for {
		next, err := source.Next(v)
		if err != nil {
			return versions, nil
		}
		versions = append(versions, next)
		v = next
	}
}
