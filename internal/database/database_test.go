package database

import (
	"path/filepath"
	"testing"

	"go-meal-analyzer/internal/cache"
	"go-meal-analyzer/internal/cache/cachetest"

	"github.com/glebarez/sqlite"
)

func TestSQLiteStoreConformance(t *testing.T) {
	cachetest.RunStoreConformance(t, func(t *testing.T) cache.Store {
		s, err := NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStoreOnDisk(t *testing.T) {
	cachetest.RunStoreConformance(t, func(t *testing.T) cache.Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestGormStoreConformance(t *testing.T) {
	cachetest.RunStoreConformance(t, func(t *testing.T) cache.Store {
		s, err := NewGormStore(sqlite.Open(filepath.Join(t.TempDir(), "gorm.db")))
		if err != nil {
			t.Fatalf("NewGormStore() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
