package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/exampledb/cmd/flags"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
	"github.com/ruteri/exampledb/storage"
	"github.com/urfave/cli/v2"
)

var errUsage = errors.New("wrong number of arguments")

type commandFunc func(cCtx *cli.Context, db *storage.Database, log *slog.Logger) error

// withDatabase opens the --db locations around a command. Logs go to stderr
// so that fetch output stays clean.
func withDatabase(fn commandFunc) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx, os.Stderr)

		db, err := flags.OpenDatabase(cCtx, cCtx.StringSlice(flags.DBFlag.Name), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		return fn(cCtx, db, logger)
	}
}

func parseKey(cCtx *cli.Context, arg string) (interfaces.Key, error) {
	if cCtx.Bool(hexKeysFlag.Name) {
		return interfaces.NewKeyFromHex(arg)
	}
	return interfaces.Key(arg), nil
}

// readValue reads the value from the file argument at index, or stdin when absent.
func readValue(cCtx *cli.Context, index int) (interfaces.Value, error) {
	if cCtx.Args().Len() <= index {
		return io.ReadAll(cCtx.App.Reader)
	}
	return os.ReadFile(cCtx.Args().Get(index))
}

func keyAndValue(cCtx *cli.Context) (interfaces.Key, interfaces.Value, error) {
	if n := cCtx.Args().Len(); n < 1 || n > 2 {
		return nil, nil, errUsage
	}

	key, err := parseKey(cCtx, cCtx.Args().Get(0))
	if err != nil {
		return nil, nil, err
	}

	value, err := readValue(cCtx, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read value: %w", err)
	}
	return key, value, nil
}

func saveCommand(cCtx *cli.Context, db *storage.Database, log *slog.Logger) error {
	key, value, err := keyAndValue(cCtx)
	if err != nil {
		return err
	}

	if err := db.Save(cCtx.Context, key, value); err != nil {
		return err
	}

	log.Info("Saved example", slog.String("key", key.String()), slog.String("value", naming.NameFor(value)))
	return nil
}

func fetchCommand(cCtx *cli.Context, db *storage.Database, log *slog.Logger) error {
	if cCtx.Args().Len() != 1 {
		return errUsage
	}

	key, err := parseKey(cCtx, cCtx.Args().First())
	if err != nil {
		return err
	}

	return fetchTo(cCtx, db, key, cCtx.String("out-dir"))
}

// fetchTo prints one hex line per value, or writes value files into outDir.
func fetchTo(cCtx *cli.Context, db *storage.Database, key interfaces.Key, outDir string) error {
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
	}

	for value := range db.Fetch(cCtx.Context, key) {
		if outDir == "" {
			if _, err := fmt.Fprintln(cCtx.App.Writer, hex.EncodeToString(value)); err != nil {
				return err
			}
			continue
		}

		if err := os.WriteFile(filepath.Join(outDir, naming.NameFor(value)), value, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func deleteCommand(cCtx *cli.Context, db *storage.Database, log *slog.Logger) error {
	key, value, err := keyAndValue(cCtx)
	if err != nil {
		return err
	}

	return db.Delete(cCtx.Context, key, value)
}

func moveCommand(cCtx *cli.Context, db *storage.Database, log *slog.Logger) error {
	if n := cCtx.Args().Len(); n < 2 || n > 3 {
		return errUsage
	}

	src, err := parseKey(cCtx, cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	dest, err := parseKey(cCtx, cCtx.Args().Get(1))
	if err != nil {
		return err
	}

	value, err := readValue(cCtx, 2)
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}

	return db.Move(cCtx.Context, src, dest, value)
}

func copyCommand(cCtx *cli.Context, db *storage.Database, log *slog.Logger) error {
	if cCtx.Args().Len() != 1 {
		return errUsage
	}

	key, err := parseKey(cCtx, cCtx.Args().First())
	if err != nil {
		return err
	}

	dest, err := flags.OpenDatabase(cCtx, cCtx.StringSlice("to"), log)
	if err != nil {
		return err
	}
	defer dest.Close()

	copied, err := copyKey(cCtx.Context, db, dest, key)
	log.Info("Copied examples",
		slog.String("key", key.String()),
		slog.String("to", dest.Backend().LocationURI()),
		slog.Int("count", copied))
	return err
}

// copyKey saves every value of key in src into dest and returns how many
// were saved. It keeps going after a failed save.
func copyKey(ctx context.Context, src, dest *storage.Database, key interfaces.Key) (int, error) {
	var copied int
	var errs []error
	for value := range src.Fetch(ctx, key) {
		if err := dest.Save(ctx, key, value); err != nil {
			errs = append(errs, err)
			continue
		}
		copied++
	}
	return copied, errors.Join(errs...)
}
