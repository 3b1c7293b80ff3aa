// Package postgres embeds the schema so the binary can migrate without the repo checkout.
package postgres

import _ "embed"

//go:embed init.sql
var InitSQL string
