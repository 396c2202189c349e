package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-payments/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.Validate(migrate.Embedded()))
	require.NoError(t, migrate.ValidateDir("migrations"))

	entries, err := fs.ReadDir(migrate.Embedded(), ".")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, entries, len(onDisk), "every migration on disk should be embedded")
}

func TestCatalogMigrationHasStockItemUniqueness(t *testing.T) {
	content := readMigration(t, "create_catalog")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_items_variant_location",
		"ON stock_items (variant_id, stock_location_id)",
		"CHECK (percentage >= 0 AND percentage <= 100)",
		"DROP TABLE IF EXISTS stock_items",
	} {
		assert.True(t, strings.Contains(content, sub), "missing %q", sub)
	}
}

func TestPaymentsMigrationConstrainsStatuses(t *testing.T) {
	content := readMigration(t, "create_payments")
	for _, status := range []string{"pending", "authorized", "completed", "partially_refunded", "refunded", "voided", "failed"} {
		assert.Contains(t, content, "'"+status+"'")
	}
	assert.Contains(t, content, "payment_id uuid NOT NULL UNIQUE")
	assert.Contains(t, content, "DROP TABLE IF EXISTS payment_sources")
}

func TestValidateRejectsMalformedFiles(t *testing.T) {
	valid := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\n"
	tests := map[string]fstest.MapFS{
		"bad name": {"bad-name.sql": {Data: []byte(valid)}},
		"duplicate version": {
			"20260901090000_a.sql": {Data: []byte(valid)},
			"20260901090000_b.sql": {Data: []byte(valid)},
		},
		"down before up":   {"20260901090000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
		"missing down":     {"20260901090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"unbalanced block": {"20260901090000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
		"empty":            {},
	}
	for name, fsys := range tests {
		assert.Error(t, migrate.Validate(fsys), name)
	}
	assert.NoError(t, migrate.Validate(fstest.MapFS{"20260901090000_a.sql": {Data: []byte(valid)}}))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Refund Reasons!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_refund_reasons.sql"))
	require.NoError(t, migrate.ValidateDir(dir))
}
