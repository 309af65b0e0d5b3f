package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/arepera-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestMigrationsContainNamedConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_profiles": {
			"CREATE TABLE IF NOT EXISTS profiles",
			"CONSTRAINT ux_profiles_email UNIQUE (email)",
			"DROP TABLE IF EXISTS profiles",
		},
		"create_carts": {
			"CONSTRAINT ux_carts_user_id UNIQUE (user_id)",
			"CONSTRAINT ux_cart_items_cart_product UNIQUE (cart_id, product_id)",
			"CHECK (quantity >= 1)",
		},
		"create_coupons": {
			"CONSTRAINT ux_coupons_code_hash UNIQUE (code_hash)",
			"CONSTRAINT ux_coupon_usages_coupon_user UNIQUE (coupon_id, user_id)",
			"CHECK (discount BETWEEN 1 AND 100)",
		},
		"create_orders": {
			"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL",
			"CREATE TABLE IF NOT EXISTS payments",
			"WHERE status = 'pending'",
		},
		"create_outbox_events": {
			"payload jsonb NOT NULL",
			"WHERE published_at IS NULL",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Product Tags!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_product_tags.sql") {
		t.Fatalf("unexpected file name %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
