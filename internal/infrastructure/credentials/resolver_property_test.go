package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func remoteKeyOrder() []string {
	k := DefaultKeyNames()
	return []string{k.Server, k.Database, k.Username, k.Password}
}

func genEnvFileValue() gopter.Gen {
	return gen.RegexMatch(`[A-Za-z0-9$!@%^&*_+.=-]{1,24}`)
}

// TestProperty_RemotePerKeyFallback checks that for any mix of vault
// failures and environment values, each key comes from the vault when the
// vault serves it, from the environment otherwise, and that the error lists
// exactly the keys neither source had.
func TestProperty_RemotePerKeyFallback(t *testing.T) {
	properties := gopter.NewProperties(nil)
	missing := filepath.Join(t.TempDir(), "absent.env")

	properties.Property("vault wins per key and Incomplete lists exactly the unresolved keys",
		prop.ForAll(
			func(vaultOK, envSet []bool) bool {
				keys := remoteKeyOrder()
				store := newFakeStore(map[string]string{})
				env := map[string]string{}
				var want []string

				for i, key := range keys {
					if vaultOK[i] {
						store.values[key] = "vault-" + key
					} else {
						store.failing[key] = errors.New("unavailable")
					}
					if envSet[i] {
						env[key] = "env-" + key
					}
					if !vaultOK[i] && !envSet[i] {
						want = append(want, key)
					}
				}

				r := NewResolver(Options{EnvFile: missing, LookupEnv: envMap(env)}, opener(store, new(int)))
				params, err := r.Resolve(context.Background())

				if len(want) > 0 {
					var incomplete *IncompleteError
					return errors.As(err, &incomplete) && reflect.DeepEqual(incomplete.Keys, want)
				}
				if err != nil {
					return false
				}

				got := []string{params.Host(), params.Database(), params.Username(), params.Password()}
				for i, key := range keys {
					expected := "env-" + key
					if vaultOK[i] {
						expected = "vault-" + key
					}
					if got[i] != expected {
						return false
					}
				}
				return store.totalCalls() == len(keys)
			},
			gen.SliceOfN(4, gen.Bool()),
			gen.SliceOfN(4, gen.Bool()),
		))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestProperty_LocalValuesReturnedVerbatim checks that local mode returns the
// file's values unchanged and never touches the store.
func TestProperty_LocalValuesReturnedVerbatim(t *testing.T) {
	properties := gopter.NewProperties(nil)
	path := filepath.Join(t.TempDir(), ".env")

	properties.Property("local parameters equal the file values",
		prop.ForAll(
			func(server, database, username, password string) bool {
				content := "server=" + server + "\ndatabase=" + database +
					"\nusername=" + username + "\npassword=" + password + "\n"
				if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
					return false
				}

				opened := 0
				r := NewResolver(Options{EnvFile: path, LookupEnv: envMap(nil)}, opener(newFakeStore(nil), &opened))
				params, err := r.Resolve(context.Background())

				return err == nil &&
					opened == 0 &&
					params.Host() == server &&
					params.Database() == database &&
					params.Username() == username &&
					params.Password() == password
			},
			genEnvFileValue(),
			genEnvFileValue(),
			genEnvFileValue(),
			genEnvFileValue(),
		))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
