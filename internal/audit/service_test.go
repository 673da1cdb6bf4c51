package audit

import (
	"context"
	"testing"
	"time"

	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *events.Bus) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(db, bus, "node-a", zerolog.Nop()), db, bus
}

func TestLogAuditEntryFromSettingUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.logAuditEntry(ctx, models.AuditActionSettingUpdate, events.Payload{
		"key":        "zoom_level",
		"old_value":  "100",
		"new_value":  "125",
		"ip":         "10.0.0.5",
		"user_agent": "Mozilla/5.0",
	})

	logs, total, err := svc.Query(ctx, QueryFilters{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Fatalf("expected one entry, got %d", total)
	}
	got := logs[0]
	if got.SettingKey != "zoom_level" || got.OldValue != "100" || got.NewValue != "125" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.IPAddress != "10.0.0.5" || got.InstanceID != "node-a" || got.ID == "" {
		t.Fatalf("unexpected request context %+v", got)
	}
}

func TestQueryFiltersAndOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	entries := []models.AuditLog{
		{Action: models.AuditActionLogin, Timestamp: base},
		{Action: models.AuditActionSettingUpdate, SettingKey: "show_clock", Timestamp: base.Add(time.Minute)},
		{Action: models.AuditActionSettingUpdate, SettingKey: "zoom_level", Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		if err := svc.Log(ctx, &entries[i]); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	logs, total, err := svc.Query(ctx, QueryFilters{})
	if err != nil || total != 3 {
		t.Fatalf("query all: %d, %v", total, err)
	}
	if logs[0].SettingKey != "zoom_level" {
		t.Fatalf("expected newest first, got %+v", logs[0])
	}

	action := models.AuditActionSettingUpdate
	key := "show_clock"
	logs, total, _ = svc.Query(ctx, QueryFilters{Action: &action, SettingKey: &key})
	if total != 1 || logs[0].SettingKey != "show_clock" {
		t.Fatalf("unexpected filtered result %+v", logs)
	}

	start := base.Add(30 * time.Second)
	_, total, _ = svc.Query(ctx, QueryFilters{StartTime: &start})
	if total != 2 {
		t.Fatalf("expected 2 entries after start, got %d", total)
	}

	logs, total, _ = svc.Query(ctx, QueryFilters{Limit: 1, Offset: 1})
	if total != 3 || len(logs) != 1 || logs[0].SettingKey != "show_clock" {
		t.Fatalf("unexpected page %+v", logs)
	}
}

func TestStartRecordsLocalEventsOnly(t *testing.T) {
	svc, db, bus := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.Publish(events.EventSettingUpdated, events.Payload{"key": "remote_key", "remote": true})
		bus.Publish(events.EventLogin, events.Payload{"ip": "10.0.0.7"})

		var count int64
		db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionLogin).Count(&count)
		if count > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("login event was not audited")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done

	var remote int64
	db.Model(&models.AuditLog{}).Where("setting_key = ?", "remote_key").Count(&remote)
	if remote != 0 {
		t.Fatalf("remote events must not be audited, got %d", remote)
	}
}
