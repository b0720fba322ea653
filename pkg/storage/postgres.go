package storage

import (
	"flag"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "github.com/wafwatch/wafwatch/pkg/storage/migrations"
	"go.uber.org/zap"
)

// PostgresStorage holds config for connecting to Postgres.
// It has an AddFlags method so it can be configured in the
// same way as other modules in the application.
type PostgresStorage struct {
	Host              string
	Port              int
	Database          string
	User              string
	Password          string
	SSLMode           string
	AutoRunMigrations bool
}

func NewPostgresStorage() *PostgresStorage {
	return &PostgresStorage{}
}

func (p *PostgresStorage) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&p.Host, "postgres-host", "", "postgres host")
	fs.IntVar(&p.Port, "postgres-port", 5432, "postgres port")
	fs.StringVar(&p.Database, "postgres-db", "", "postgres database")
	fs.StringVar(&p.User, "postgres-user", "", "postgres user")
	fs.StringVar(&p.Password, "postgres-password", "", "postgres password")
	fs.StringVar(&p.SSLMode, "postgres-sslmode", "disable", "postgres SSL mode")
	fs.BoolVar(&p.AutoRunMigrations, "auto-run-migrations", true, "auto run migrations")
}

func (p *PostgresStorage) Connect(log *zap.SugaredLogger) (*sqlx.DB, error) {
	if p.AutoRunMigrations {
		log.Info("auto-migrate flag enabled, running postgres migrations")
		if err := p.RunMigration(); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Connect("postgres", p.psqlInfoString())
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to postgres host=%s port=%d user=%s dbname=%s sslmode=%s",
			p.Host, p.Port, p.User, p.Database, p.SSLMode)
	}
	return db, nil
}

// RunMigration applies pending migrations from the embedded
// filesystem registered by the migrations package.
func (p *PostgresStorage) RunMigration() error {
	m, err := migrate.New("embed://", p.ConnectionString())
	if err != nil {
		return errors.Wrap(err, "error connecting to database while running migrations")
	}
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "applying migrations")
	}
	return nil
}

func (p *PostgresStorage) psqlInfoString() string {
	return fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

func (p *PostgresStorage) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}
