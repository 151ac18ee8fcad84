package sqlite

import (
	_ "embed"
)

// Embedded client schema.
//
//go:embed migrations/001_init.sql
var initDDL string

func initialDDL() string { return initDDL }
