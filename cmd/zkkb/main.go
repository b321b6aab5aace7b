package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/zkkb/cmd/flags"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/session"
	"github.com/ruteri/zkkb/storage"
	"github.com/urfave/cli/v2"
)

var flagIdentity = &cli.StringFlag{
	Name:  "identity",
	Value: "default",
	Usage: "name of the local identity to use",
}

var flagPassphrase = &cli.StringFlag{
	Name:    "passphrase",
	EnvVars: []string{"ZKKB_PASSPHRASE"},
	Usage:   "passphrase protecting the local identity",
}

func main() {
	app := &cli.App{
		Name:  "zkkb",
		Usage: "Private kanban boards with anonymous membership proofs",
		Flags: append([]cli.Flag{
			flags.RecordsURIFlag,
			flags.BlobsURIFlag,
			flagIdentity,
			flagPassphrase,
			flags.LogServiceFlagFn("zkkb"),
		}, flags.CommonFlags...),
		Commands: []*cli.Command{
			phraseCommand,
			identityCommand,
			boardCommand,
			memberCommand,
			syncCommand,
			proofCommand,
			backupCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// env is what every command needing local state works against.
type env struct {
	log        *slog.Logger
	records    interfaces.RecordStore
	blobs      interfaces.StorageBackend
	identities *storage.Repository[identity.SealedIdentity]
}

func newEnv(cCtx *cli.Context, withBlobs bool) (*env, error) {
	logger := flags.SetupLogger(cCtx)
	factory := storage.NewStorageBackendFactory(logger)

	loc, err := interfaces.NewStorageBackendLocation(cCtx.String(flags.RecordsURIFlag.Name))
	if err != nil {
		return nil, err
	}
	records, err := factory.RecordStoreFor(cCtx.Context, loc)
	if err != nil {
		return nil, err
	}

	e := &env{
		log:        logger,
		records:    records,
		identities: storage.NewRepository[identity.SealedIdentity](records, interfaces.IdentityNamespace),
	}

	if withBlobs {
		var locations []interfaces.StorageBackendLocation
		for _, uri := range cCtx.StringSlice(flags.BlobsURIFlag.Name) {
			loc, err := interfaces.NewStorageBackendLocation(uri)
			if err != nil {
				return nil, err
			}
			locations = append(locations, loc)
		}
		if len(locations) > 0 {
			e.blobs, err = factory.CreateMultiBackend(locations)
			if err != nil {
				return nil, err
			}
		}
	}

	return e, nil
}

func (e *env) loadIdentity(cCtx *cli.Context) (*identity.Identity, error) {
	name := cCtx.String(flagIdentity.Name)
	sealed, err := e.identities.Get(cCtx.Context, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity %q: %w", name, err)
	}
	id, _, err := identity.Open(sealed, cCtx.String(flagPassphrase.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to unlock identity %q: %w", name, err)
	}
	return id, nil
}

func (e *env) session(cCtx *cli.Context) (*session.Session, error) {
	id, err := e.loadIdentity(cCtx)
	if err != nil {
		return nil, err
	}
	return session.New(id, session.Config{
		Records: e.records,
		Blobs:   e.blobs,
		Log:     e.log,
	})
}

// openSession is the common prologue of board commands.
func openSession(cCtx *cli.Context) (*env, *session.Session, error) {
	e, err := newEnv(cCtx, true)
	if err != nil {
		return nil, nil, err
	}
	s, err := e.session(cCtx)
	if err != nil {
		return nil, nil, err
	}
	return e, s, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func requireArgs(cCtx *cli.Context, n int) error {
	if cCtx.NArg() < n {
		return fmt.Errorf("expected %d arguments, got %d", n, cCtx.NArg())
	}
	return nil
}
