package db

import "testing"

type account struct {
	ID    int64  `gorm:"primaryKey"`
	Email string `gorm:"uniqueIndex"`
}

func TestIsDuplicateKeyErr(t *testing.T) {
	conn, err := NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&account{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	if err := conn.Create(&account{ID: 1, Email: "a@example.com"}).Error; err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err = conn.Create(&account{ID: 2, Email: "a@example.com"}).Error
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate key classification, got %v", err)
	}
}

func TestIsDuplicateKeyErrNil(t *testing.T) {
	if IsDuplicateKeyErr(nil) {
		t.Fatal("nil must not classify as duplicate")
	}
}
