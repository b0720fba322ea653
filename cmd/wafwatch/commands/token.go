package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/wafwatch/wafwatch/pkg/storage"
	"github.com/wafwatch/wafwatch/pkg/tokens"
	"go.uber.org/zap"
)

// TokenCommand manages the sender tokens used to authenticate event
// ingest.
type TokenCommand struct {
	rootConfig *RootConfig
	out        io.Writer

	TokenStoreFactory *tokens.TokensStoreFactory
	Postgres          *storage.PostgresStorage

	name string
	id   string
}

// NewTokenCommand creates a new ffcli.Command
func NewTokenCommand(rootConfig *RootConfig, out io.Writer) *ffcli.Command {
	c := TokenCommand{
		rootConfig: rootConfig,
		out:        out,
	}

	c.TokenStoreFactory = tokens.NewFactory()
	c.Postgres = storage.NewPostgresStorage()

	fs := flag.NewFlagSet("wafwatch token", flag.ExitOnError)
	c.TokenStoreFactory.AddFlags(fs)
	c.Postgres.AddFlags(fs)
	rootConfig.RegisterFlags(fs)

	createFs := flag.NewFlagSet("wafwatch token create", flag.ExitOnError)
	createFs.StringVar(&c.name, "name", "", "a label describing the sender the token is for")

	deleteFs := flag.NewFlagSet("wafwatch token delete", flag.ExitOnError)
	deleteFs.StringVar(&c.id, "id", "", "the ID of the token to delete")

	return &ffcli.Command{
		Name:       "token",
		ShortUsage: "wafwatch token <subcommand> [flags]",
		ShortHelp:  "Manage sender tokens for event ingest",
		FlagSet:    fs,
		Subcommands: []*ffcli.Command{
			{
				Name:       "create",
				ShortUsage: "wafwatch token create -name <name>",
				ShortHelp:  "Create a sender token",
				FlagSet:    createFs,
				Exec:       c.ExecCreate,
			},
			{
				Name:       "list",
				ShortUsage: "wafwatch token list",
				ShortHelp:  "List sender tokens",
				Exec:       c.ExecList,
			},
			{
				Name:       "delete",
				ShortUsage: "wafwatch token delete -id <id>",
				ShortHelp:  "Delete a sender token",
				FlagSet:    deleteFs,
				Exec:       c.ExecDelete,
			},
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func (c *TokenCommand) store(ctx context.Context) (tokens.TokenStorer, error) {
	opts := tokens.TokensFactorySetupOpts{}
	if c.TokenStoreFactory.TokenStorageBackend == "postgres" {
		log := zap.NewNop().Sugar()
		db, err := c.Postgres.Connect(log)
		if err != nil {
			return nil, err
		}
		opts.DB = db
	}
	return c.TokenStoreFactory.GetTokensStore(ctx, &opts)
}

func (c *TokenCommand) ExecCreate(ctx context.Context, _ []string) error {
	if c.name == "" {
		return errors.New("the -name argument must be provided")
	}
	store, err := c.store(ctx)
	if err != nil {
		return err
	}
	token, err := store.Create(ctx, c.name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created token %s (%s)\n", token.ID, token.Name)
	return nil
}

func (c *TokenCommand) ExecList(ctx context.Context, _ []string) error {
	store, err := c.store(ctx)
	if err != nil {
		return err
	}
	tt, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range tt {
		fmt.Fprintf(c.out, "%s\t%s\n", t.ID, t.Name)
	}
	return nil
}

func (c *TokenCommand) ExecDelete(ctx context.Context, _ []string) error {
	if c.id == "" {
		return errors.New("the -id argument must be provided")
	}
	store, err := c.store(ctx)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, c.id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted token %s\n", c.id)
	return nil
}
