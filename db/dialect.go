// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

type dialect struct {
	name          string
	driver        string
	timestampType string
	forUpdate     string
	numbered      bool
}

func dialectFor(dbType string) (dialect, error) {
	switch dbType {
	case TypePostgres:
		return dialect{
			name:          TypePostgres,
			driver:        "postgres",
			timestampType: "TIMESTAMPTZ",
			forUpdate:     " FOR UPDATE",
			numbered:      true,
		}, nil
	case TypeSQLite, "":
		return dialect{
			name:          TypeSQLite,
			driver:        "sqlite",
			timestampType: "TIMESTAMP",
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database type %q", dbType)
	}
}

// rebind rewrites ? placeholders as $1, $2, ... for dialects that need it.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
