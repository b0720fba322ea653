package tokens

import (
	"context"
	"errors"
	"flag"

	"github.com/jmoiron/sqlx"
)

// TokensStoreFactory builds a TokenStorer from CLI flags.
type TokensStoreFactory struct {
	TokenStorageBackend           string
	TokenStorageDynamoDBTableName string
}

type TokensFactorySetupOpts struct {
	// DB is required for the postgres backend
	DB *sqlx.DB
}

func NewFactory() *TokensStoreFactory {
	return &TokensStoreFactory{}
}

// AddFlags configures CLI flags
func (f *TokensStoreFactory) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.TokenStorageBackend, "token-storage-backend", "inmemory", "token storage backend (must be 'dynamodb', 'inmemory' or 'postgres')")
	fs.StringVar(&f.TokenStorageDynamoDBTableName, "token-storage-dynamodb-table-name", "wafwatch-tokens", "the token storage table name (only for DynamoDB token storage backend)")
}

func (f *TokensStoreFactory) GetTokensStore(ctx context.Context, opts *TokensFactorySetupOpts) (TokenStorer, error) {
	switch f.TokenStorageBackend {
	case "dynamodb":
		return NewDynamoDBTokenStorer(ctx, f.TokenStorageDynamoDBTableName)
	case "inmemory":
		return NewInMemoryTokenStorer(), nil
	case "postgres":
		if opts == nil || opts.DB == nil {
			return nil, errors.New("postgres token storage requires a database connection")
		}
		return NewPostgresTokenStorer(opts.DB), nil
	}
	return nil, errors.New("token storage type must be dynamodb, inmemory, or postgres")
}
