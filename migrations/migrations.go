// Package migrations embeds the SQL schema for goose: questions, deputes,
// ministeres and the vue_stats_deputes materialized view.
//
// Migration files follow the naming convention: YYYYMMDDHHMMSS_description.sql
// They are applied in order before any run touches the database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
