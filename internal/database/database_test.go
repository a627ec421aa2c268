package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/anivault/anivault/internal/config"
)

func TestOpenSQLiteMigrateAndPing(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBURL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"profiles", "ip_sessions", "anime"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
	if err := Ping(context.Background(), db); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(&config.Config{DBDriver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
