package db

import (
	"testing"

	"github.com/friendsincode/classboard/internal/config"
	"github.com/friendsincode/classboard/internal/models"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := &config.Config{DBBackend: config.DatabaseSQLite, DBDSN: ":memory:"}

	database, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer Close(database)

	if err := Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	row := models.Setting{ID: "a", Key: "zip_code", Value: ""}
	if err := database.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var got models.Setting
	if err := database.First(&got, "name = ?", "zip_code").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Value != "null" {
		t.Fatalf("expected empty value normalised to null, got %q", got.Value)
	}

	UpdateConnectionMetrics(database)
}

func TestConnectRejectsUnknownBackend(t *testing.T) {
	if _, err := Connect(&config.Config{DBBackend: "couchdb", DBDSN: "x"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
