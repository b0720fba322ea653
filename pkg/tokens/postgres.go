package tokens

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/crypto"
)

// PostgresTokenStorer is a token storage backend which uses Postgres
type PostgresTokenStorer struct {
	db *sqlx.DB
}

func NewPostgresTokenStorer(db *sqlx.DB) *PostgresTokenStorer {
	return &PostgresTokenStorer{db: db}
}

// Create a Token and store it in the database
func (s *PostgresTokenStorer) Create(ctx context.Context, name string) (*Token, error) {
	ID, err := crypto.GenerateRandomToken()
	if err != nil {
		return nil, errors.Wrap(err, "generating token")
	}

	token := Token{
		ID:   ID,
		Name: name,
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO tokens (id, name) VALUES ($1, $2)", token.ID, token.Name)
	if err != nil {
		return nil, errors.Wrap(err, "inserting item")
	}

	return &token, nil
}

// Delete a token from the database
func (s *PostgresTokenStorer) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE id = $1", id)
	return err
}

// Get a token from the database
func (s *PostgresTokenStorer) Get(ctx context.Context, id string) (*Token, error) {
	var t Token
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tokens WHERE id = $1", id)

	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching item")
	}

	return &t, nil
}

// List all tokens
func (s *PostgresTokenStorer) List(ctx context.Context) ([]Token, error) {
	t := []Token{}
	err := s.db.SelectContext(ctx, &t, "SELECT * FROM tokens")
	if err != nil {
		return nil, err
	}
	return t, nil
}
