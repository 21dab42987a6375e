// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"errors"
	"testing"

	"github.com/lib/pq"

	"github.com/danielhkuo/quota-vote/store"
)

func TestRebind(t *testing.T) {
	pg, _ := dialectFor(TypePostgres)
	lite, _ := dialectFor(TypeSQLite)

	query := "SELECT 1 FROM campaign WHERE id = ? AND state = ?"

	if got := pg.rebind(query); got != "SELECT 1 FROM campaign WHERE id = $1 AND state = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	if got := lite.rebind(query); got != query {
		t.Errorf("sqlite rebind should be identity, got %q", got)
	}
}

func TestDialectFor_Unsupported(t *testing.T) {
	if _, err := dialectFor("mysql"); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}

func TestClassify_Postgres(t *testing.T) {
	tests := []struct {
		name string
		code pq.ErrorCode
		want error
	}{
		{"serialization failure", "40001", store.ErrWriteConflict},
		{"deadlock", "40P01", store.ErrWriteConflict},
		{"unique violation", "23505", store.ErrConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(&pq.Error{Code: tt.code})
			if !errors.Is(err, tt.want) {
				t.Errorf("classify(%s) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestClassify_Passthrough(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
	plain := errors.New("boom")
	if got := classify(plain); got != plain {
		t.Errorf("classify should pass unknown errors through, got %v", got)
	}
}
