package appbootstrap

import (
	"os"
	"path/filepath"
	"strings"

	"fusionguard/config"
	"fusionguard/core/utils"
)

// EnsureStorageDirs creates the parent directory of the sqlite file.
func EnsureStorageDirs(cfg *config.AppConfig, logger *utils.Logger) error {
	if cfg == nil || cfg.Storage.Backend != "sql" || cfg.Storage.DBDriver != "sqlite" {
		return nil
	}
	p := strings.TrimSpace(cfg.Storage.DBPath)
	if p == "" || p == ":memory:" || strings.HasPrefix(p, "file:") {
		return nil
	}
	dir := filepath.Dir(p)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		logger.Errorf("storage dir init failed path=%s: %v", dir, err)
		return err
	}
	return nil
}
