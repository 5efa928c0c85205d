// Package credentials decides where the database credentials come from and
// turns them into ConnectionParameters.
//
// A local env file (".env" by default) means a developer machine: every value
// is read from that file and the secret store is never touched. Without it the
// process is assumed to run in a managed environment: each value is fetched
// from the secret store, and any key the store cannot serve falls back to the
// upper-cased environment variable of the same name.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"usersvc/internal/infrastructure/secrets"
)

// CredentialSource tells which source is authoritative for this process.
type CredentialSource int

const (
	SourceLocalFile CredentialSource = iota + 1
	SourceRemoteVault
)

func (s CredentialSource) String() string {
	switch s {
	case SourceLocalFile:
		return "local-file"
	case SourceRemoteVault:
		return "remote-vault"
	default:
		return "unknown"
	}
}

// Keys read from the local env file.
const (
	LocalKeyServer   = "server"
	LocalKeyDatabase = "database"
	LocalKeyUsername = "username"
	LocalKeyPassword = "password"
)

// Identity provider keys. The same names are used locally and remotely.
const (
	KeyTenantID = "AZ-TENANT-ID"
	KeyClientID = "AZ-APP-CLIENT-ID"
)

// KeyNames are the secret names queried in remote mode.
type KeyNames struct {
	Server   string
	Database string
	Username string
	Password string
}

// DefaultKeyNames returns the secret names used by the deployed service.
func DefaultKeyNames() KeyNames {
	return KeyNames{
		Server:   "DB-SERVER",
		Database: "DB-NAME",
		Username: "DB-USERNAME",
		Password: "DB-PASSWORD",
	}
}

// Validate rejects empty or repeated names; two parameters read from the
// same secret would silently share a value.
func (k KeyNames) Validate() error {
	seen := make(map[string]bool, 4)
	for _, name := range []string{k.Server, k.Database, k.Username, k.Password} {
		if name == "" {
			return ErrEmptyKeyName
		}
		if seen[name] {
			return fmt.Errorf("%w: %q", ErrDuplicateKeyName, name)
		}
		seen[name] = true
	}
	return nil
}

// StoreOpener builds the secret store client. It is only invoked in remote
// mode, at most once per Resolver.
type StoreOpener func(ctx context.Context) (secrets.Store, error)

// Options configure a Resolver.
type Options struct {
	// EnvFile is the local artifact whose presence selects local mode.
	EnvFile string
	// Keys are the remote secret names.
	Keys KeyNames
	// Timeout bounds each secret store call. Zero means no extra bound.
	Timeout time.Duration
	// LookupEnv reads fallback values; defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Resolver resolves credentials once at startup.
type Resolver struct {
	opts Options
	open StoreOpener

	sourceOnce sync.Once
	source     CredentialSource

	storeOnce sync.Once
	store     secrets.Store
}

// NewResolver creates a Resolver. open may be nil, in which case every remote
// lookup falls back to the environment.
func NewResolver(opts Options, open StoreOpener) *Resolver {
	if opts.EnvFile == "" {
		opts.EnvFile = ".env"
	}
	defaults := DefaultKeyNames()
	if opts.Keys.Server == "" {
		opts.Keys.Server = defaults.Server
	}
	if opts.Keys.Database == "" {
		opts.Keys.Database = defaults.Database
	}
	if opts.Keys.Username == "" {
		opts.Keys.Username = defaults.Username
	}
	if opts.Keys.Password == "" {
		opts.Keys.Password = defaults.Password
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	return &Resolver{opts: opts, open: open}
}

// Source probes for the local env file on first use and remembers the answer.
func (r *Resolver) Source() CredentialSource {
	r.sourceOnce.Do(func() {
		r.source = SourceRemoteVault
		if info, err := os.Stat(r.opts.EnvFile); err == nil && !info.IsDir() {
			r.source = SourceLocalFile
		}
	})
	return r.source
}

// Resolve returns the database connection parameters.
func (r *Resolver) Resolve(ctx context.Context) (ConnectionParameters, error) {
	var server, database, username, password string

	switch r.Source() {
	case SourceLocalFile:
		values, err := r.resolveLocal(LocalKeyServer, LocalKeyDatabase, LocalKeyUsername, LocalKeyPassword)
		if err != nil {
			return ConnectionParameters{}, err
		}
		server, database = values[LocalKeyServer], values[LocalKeyDatabase]
		username, password = values[LocalKeyUsername], values[LocalKeyPassword]
	default:
		k := r.opts.Keys
		if err := k.Validate(); err != nil {
			return ConnectionParameters{}, err
		}
		values, err := r.resolveRemote(ctx, k.Server, k.Database, k.Username, k.Password)
		if err != nil {
			return ConnectionParameters{}, err
		}
		server, database = values[k.Server], values[k.Database]
		username, password = values[k.Username], values[k.Password]
	}

	params, err := NewConnectionParameters(server, database, username, password)
	if err != nil {
		return ConnectionParameters{}, err
	}
	log.Info().Stringer("source", r.Source()).Object("params", params).Msg("Resolved database credentials")
	return params, nil
}

// ResolveIdentity returns the tenant and client IDs of the API registration.
func (r *Resolver) ResolveIdentity(ctx context.Context) (IdentitySettings, error) {
	var values map[string]string
	var err error
	if r.Source() == SourceLocalFile {
		values, err = r.resolveLocal(KeyTenantID, KeyClientID)
	} else {
		values, err = r.resolveRemote(ctx, KeyTenantID, KeyClientID)
	}
	if err != nil {
		return IdentitySettings{}, err
	}
	return IdentitySettings{TenantID: values[KeyTenantID], ClientID: values[KeyClientID]}, nil
}

// Close releases the secret store client if one was opened.
func (r *Resolver) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

func (r *Resolver) resolveLocal(keys ...string) (map[string]string, error) {
	file, err := readEnvFile(r.opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.opts.EnvFile, err)
	}
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := file[envFileKey(key)]
		if strings.TrimSpace(v) == "" {
			return nil, &MissingLocalKeyError{File: r.opts.EnvFile, Key: key}
		}
		values[key] = v
		log.Debug().Str("key", key).Str("origin", "file").Msg("credential resolved")
	}
	return values, nil
}

// resolveRemote falls back per key, so one value may come from the store and
// its sibling from the environment. Unresolved keys are collected, not fatal
// one by one.
func (r *Resolver) resolveRemote(ctx context.Context, names ...string) (map[string]string, error) {
	store := r.openStore(ctx)
	values := make(map[string]string, len(names))
	var unresolved []string

	for _, name := range names {
		v, err := r.fetch(ctx, store, name)
		if err == nil {
			values[name] = v
			log.Debug().Str("key", name).Str("origin", "vault").Msg("credential resolved")
			continue
		}
		log.Warn().Err(err).Str("key", name).Msg("Secret store lookup failed, falling back to environment")

		envKey := strings.ToUpper(name)
		if envValue, ok := r.opts.LookupEnv(envKey); ok && envValue != "" {
			values[name] = envValue
			log.Debug().Str("key", name).Str("origin", "env").Str("env", envKey).Msg("credential resolved")
			continue
		}
		unresolved = append(unresolved, name)
	}

	if len(unresolved) > 0 {
		return nil, &IncompleteError{Keys: unresolved}
	}
	return values, nil
}

var errNoStore = errors.New("secret store unavailable")

func (r *Resolver) fetch(ctx context.Context, store secrets.Store, name string) (string, error) {
	if store == nil {
		return "", errNoStore
	}
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	v, err := store.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", secrets.ErrEmptySecret
	}
	return v, nil
}

func (r *Resolver) openStore(ctx context.Context) secrets.Store {
	r.storeOnce.Do(func() {
		if r.open == nil {
			return
		}
		store, err := r.open(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Secret store could not be opened, using environment only")
			return
		}
		r.store = store
	})
	return r.store
}
