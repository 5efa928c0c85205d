// Command dbcheck resolves database credentials the same way the server
// does and probes the store. It never prints credential values.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"usersvc/internal/config"
	"usersvc/internal/infrastructure/credentials"
	"usersvc/internal/infrastructure/database"
	"usersvc/internal/infrastructure/secrets"
)

type options struct {
	envFile    string
	driver     string
	provider   string
	vaultURL   string
	gcpProject string
	nameSecret string
	timeout    time.Duration
	identity   bool
	verbose    bool
}

func main() {
	app := kingpin.New("dbcheck", "Resolve database credentials and check that the store answers")
	var opts options
	app.Flag("env-file", "Local credentials file; its presence selects local mode").Default(".env").Envar("DB_ENV_FILE").StringVar(&opts.envFile)
	app.Flag("driver", "SQL driver").Default(database.DriverSQLServer).Envar("DB_DRIVER").
		EnumVar(&opts.driver, database.DriverSQLServer, database.DriverPostgres, database.DriverPgx, database.DriverSQLite)
	app.Flag("secrets-provider", "Remote secret store (azure or gcp)").Default("azure").Envar("SECRETS_PROVIDER").StringVar(&opts.provider)
	app.Flag("vault-url", "Azure Key Vault URL").Envar("KEY_VAULT_URL").StringVar(&opts.vaultURL)
	app.Flag("gcp-project", "Google Cloud project holding the secrets").Envar("GCP_PROJECT").StringVar(&opts.gcpProject)
	app.Flag("name-secret", "Remote secret holding the database name").Default("DB-NAME").Envar("DB_NAME_SECRET").StringVar(&opts.nameSecret)
	app.Flag("timeout", "Overall time budget").Default("15s").DurationVar(&opts.timeout)
	app.Flag("identity", "Also resolve the identity provider tenant and client IDs").BoolVar(&opts.identity)
	app.Flag("verbose", "Log resolution steps").Short('v').BoolVar(&opts.verbose)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if opts.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "dbcheck: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, opts options) error {
	secretsCfg := config.SecretsConfig{
		Provider:   opts.provider,
		VaultURL:   opts.vaultURL,
		GCPProject: opts.gcpProject,
		Timeout:    opts.timeout / 3,
	}

	keys := credentials.DefaultKeyNames()
	keys.Database = opts.nameSecret
	resolver := credentials.NewResolver(credentials.Options{
		EnvFile: opts.envFile,
		Keys:    keys,
		Timeout: secretsCfg.Timeout,
	}, func(ctx context.Context) (secrets.Store, error) {
		return secrets.Open(ctx, secretsCfg)
	})
	defer resolver.Close()

	fmt.Fprintf(out, "source:    %s\n", resolver.Source())

	if opts.identity {
		if _, err := resolver.ResolveIdentity(ctx); err != nil {
			reportResolveError(out, err)
			return errors.New("identity settings incomplete")
		}
		fmt.Fprintln(out, "identity:  resolved")
	}

	params, err := resolver.Resolve(ctx)
	if err != nil {
		reportResolveError(out, err)
		return errors.New("database credentials incomplete")
	}
	fmt.Fprintf(out, "target:    %s/%s as %s\n", params.Host(), params.Database(), params.Username())

	engine, err := database.NewFactory(database.Options{
		Driver:         opts.driver,
		MaxOpenConns:   1,
		ConnectTimeout: opts.timeout,
	}).Initialize(ctx, params)
	if err != nil {
		fmt.Fprintln(out, "ping:      failed")
		if errors.Is(err, database.ErrUnsupportedDriver) {
			return err
		}
		return database.ErrConnectFailed
	}
	defer engine.Close()

	fmt.Fprintln(out, "ping:      ok")
	return nil
}

func reportResolveError(out io.Writer, err error) {
	var missing *credentials.MissingLocalKeyError
	var incomplete *credentials.IncompleteError
	switch {
	case errors.As(err, &missing):
		fmt.Fprintf(out, "missing:   %s (in %s)\n", missing.Key, missing.File)
	case errors.As(err, &incomplete):
		for _, k := range incomplete.Keys {
			fmt.Fprintf(out, "unresolved: %s\n", k)
		}
	default:
		fmt.Fprintf(out, "error:     %v\n", err)
	}
}
