package gormrepository

import (
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunDB builds a gorm handle that renders SQL without touching a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestOpenBuyExposureCountsOnlyBuySide(t *testing.T) {
	var raw *string
	tx := openBuyExposure(dryRunDB(t)).Find(&raw)
	if tx.Error != nil {
		t.Fatalf("build query: %v", tx.Error)
	}

	sql := tx.Statement.SQL.String()
	if !strings.Contains(sql, "side = ") {
		t.Fatalf("exposure query must filter on side, got %q", sql)
	}
	if !strings.Contains(sql, "status IN ") {
		t.Fatalf("exposure query must filter on in-flight statuses, got %q", sql)
	}

	vars := tx.Statement.Vars
	found := false
	for _, v := range vars {
		if s, ok := v.(string); ok && s == "BUY" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected BUY bound as the side filter, vars %v", vars)
	}
}
