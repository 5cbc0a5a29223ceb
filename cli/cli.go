package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fusionguard/config"
	"fusionguard/core/appbootstrap"
	"fusionguard/core/auth"
	"fusionguard/core/bootstrap"
	"fusionguard/core/identity"
	"fusionguard/core/kv"
	"fusionguard/core/store"
	"fusionguard/core/utils"
)

const usage = "commands: migrate, migrate-status, seed-identities, add-identity"

// Run executes a maintenance command named by os.Args[1].
func Run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger()
	defer logger.Sync()
	if err := Exec(context.Background(), cfg, logger, os.Args[1:], os.Stdout); err != nil {
		logger.Fatalf("%v", err)
	}
}

// Exec runs one command against cfg, writing human output to out.
func Exec(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return nil
	}
	switch args[0] {
	case "migrate":
		db, err := openSQL(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, logger); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "migrate-status":
		db, err := openSQL(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		status, err := store.GetMigrationStatus(ctx, db)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "seed-identities":
		return withDirectory(ctx, cfg, logger, func(dir *identity.Directory) error {
			if err := bootstrap.ResetSeedIdentities(ctx, dir, logger); err != nil {
				return err
			}
			fmt.Fprintln(out, "identities reset to seed defaults")
			return nil
		})
	case "add-identity":
		fs := flag.NewFlagSet("add-identity", flag.ContinueOnError)
		fs.SetOutput(out)
		name := fs.String("n", "", "display name")
		email := fs.String("e", "", "email")
		password := fs.String("p", "", "password")
		role := fs.String("r", string(identity.RoleOperator), "role: Admin, Operator or Viewer")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return withDirectory(ctx, cfg, logger, func(dir *identity.Directory) error {
			created, err := dir.Create(ctx, identity.NewIdentity{
				Name:     *name,
				Email:    *email,
				Password: *password,
				Role:     identity.Role(*role),
			})
			if err != nil {
				return fmt.Errorf("add identity: %w", err)
			}
			fmt.Fprintf(out, "identity created id=%s email=%s role=%s\n", created.ID, created.Email, created.Role)
			return nil
		})
	default:
		fmt.Fprintln(out, usage)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func openSQL(cfg *config.AppConfig, logger *utils.Logger) (*store.DB, error) {
	if cfg.Storage.Backend != "sql" {
		return nil, errors.New("migrations apply to the sql storage backend only")
	}
	if err := appbootstrap.EnsureStorageDirs(cfg, logger); err != nil {
		return nil, err
	}
	db, err := store.NewDB(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return db, nil
}

func withDirectory(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger, fn func(*identity.Directory) error) error {
	backend, err := appbootstrap.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	dir := identity.NewDirectory(backend.Scope(kv.GlobalScope), auth.NewHasher(cfg.Pepper), logger)
	return fn(dir)
}
