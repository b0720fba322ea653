package commands

import (
	"context"
	"flag"
	"io"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/cmd/wafwatch/app"
	"github.com/wafwatch/wafwatch/internal/tracing"
	"github.com/wafwatch/wafwatch/pkg/config"
	"github.com/wafwatch/wafwatch/pkg/service"
	"github.com/wafwatch/wafwatch/pkg/storage"
	"github.com/wafwatch/wafwatch/pkg/tokens"
	"go.uber.org/zap"
)

// ServerCommand configuration object
type ServerCommand struct {
	RootConfig *RootConfig
	Out        io.Writer

	TracingFactory    *tracing.TracingFactory
	TokenStoreFactory *tokens.TokensStoreFactory
	Monitor           *app.Monitor
	Postgres          *storage.PostgresStorage

	AdminPort      int
	StorageBackend string
	ConfigFile     string
}

// NewServerCommand creates a new ffcli.Command
func NewServerCommand(rootConfig *RootConfig, out io.Writer) *ffcli.Command {
	c := ServerCommand{
		RootConfig: rootConfig,
		Out:        out,
	}

	c.TracingFactory = tracing.NewFactory()
	c.TokenStoreFactory = tokens.NewFactory()
	c.Monitor = app.New()
	c.Postgres = storage.NewPostgresStorage()

	fs := flag.NewFlagSet("wafwatch server", flag.ExitOnError)

	// register CLI flags for other components
	c.TracingFactory.AddFlags(fs)
	c.TokenStoreFactory.AddFlags(fs)
	c.Monitor.AddFlags(fs)
	c.Postgres.AddFlags(fs)

	fs.IntVar(&c.AdminPort, "admin-port", 10866, "the admin server port (health check and pprof)")
	fs.StringVar(&c.StorageBackend, "storage-backend", "inmemory", "alert storage backend (must be 'inmemory', 'bolt' or 'postgres')")
	fs.StringVar(&c.ConfigFile, "config", "", "path to a .env config file")

	rootConfig.RegisterFlags(fs)

	return &ffcli.Command{
		Name:       "server",
		ShortUsage: "wafwatch server [flags]",
		ShortHelp:  "Run the wafwatch monitor server",
		FlagSet:    fs,
		// allow setting environment variables and a .env file to
		// configure server settings
		Options: []ff.Option{
			ff.WithEnvVarPrefix("WAFWATCH"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(config.EnvFileParser("WAFWATCH")),
			ff.WithAllowMissingConfigFile(true),
		},
		Exec: c.Exec,
	}
}

// Exec function for this command.
func (c *ServerCommand) Exec(ctx context.Context, _ []string) error {
	svc := service.NewService(c.AdminPort)
	if err := svc.Start(); err != nil {
		return err
	}

	log := svc.Logger
	tracer, err := c.TracingFactory.InitializeTracer(ctx)
	if err != nil {
		return err
	}

	tokensOpts := tokens.TokensFactorySetupOpts{}
	var store *storage.Storage
	switch c.StorageBackend {
	case "inmemory":
		store = storage.BuildInMemoryStorage()
	case "bolt":
		db, err := storage.OpenBoltDB()
		if err != nil {
			return err
		}
		store = storage.BuildBoltStorage(db)
	case "postgres":
		db, err := c.Postgres.Connect(log)
		if err != nil {
			return err
		}
		store = storage.BuildPostgresStorage(db)
		tokensOpts.DB = db
	default:
		return errors.Errorf("storage backend %s is not supported (must be 'inmemory', 'bolt' or 'postgres')", c.StorageBackend)
	}

	tokenStore, err := c.TokenStoreFactory.GetTokensStore(ctx, &tokensOpts)
	if err != nil {
		return err
	}

	m := c.Monitor
	if err := m.Start(ctx, &app.MonitorOptions{
		Logger:     log,
		Tracer:     tracer,
		TokenStore: tokenStore,
		Storage:    store,
	}); err != nil {
		return err
	}

	svc.RunAndThen(func() {
		if err := m.Close(); err != nil {
			log.Fatal("failed to close monitor", zap.Error(err))
		}
	})
	return nil
}
