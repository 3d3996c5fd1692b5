package tubelinkscribe

import _ "embed"

// SchemaSQL is the bootstrap schema applied to a fresh database.
//
//go:embed schema.sql
var SchemaSQL []byte
