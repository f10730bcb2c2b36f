package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
)

// Counters are owned by RunMaintenance and never written here.
const representativeConflict = "ON CONFLICT (id) DO UPDATE SET " +
	"nom = EXCLUDED.nom, " +
	"prenom = EXCLUDED.prenom, " +
	"nom_complet = EXCLUDED.nom_complet, " +
	"groupe_parlementaire = EXCLUDED.groupe_parlementaire, " +
	"debut_mandat = COALESCE(EXCLUDED.debut_mandat, deputes.debut_mandat), " +
	"fin_mandat = COALESCE(EXCLUDED.fin_mandat, deputes.fin_mandat), " +
	"date_modification = NOW()"

// UpsertRepresentatives writes one batch of deputies keyed on id. The full
// name is computed here from given name and surname.
func (db *DB) UpsertRepresentatives(ctx context.Context, batch []domain.Representative) (int, error) {
	if len(batch) == 0 {
		return 0, apperrors.ErrEmptyBatch
	}

	rows := lastByKey(batch, func(r domain.Representative) int64 { return r.ID })

	builder := psql().Insert(TableDeputes).
		Columns("id", "nom", "prenom", "nom_complet", "groupe_parlementaire", "debut_mandat", "fin_mandat", "date_modification")

	for _, r := range rows {
		builder = builder.Values(
			r.ID,
			SanitizeUTF8(r.Surname),
			SanitizeUTF8(r.GivenName),
			SanitizeUTF8(r.FullName()),
			r.Group,
			dateOnly(r.MandateStart),
			dateOnly(r.MandateEnd),
			sq.Expr("NOW()"),
		)
	}

	query, args, err := builder.Suffix(representativeConflict).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build deputes upsert: %w", err)
	}

	start := time.Now()

	_, err = db.SQL.ExecContext(ctx, query, args...)

	observability.LoaderBatchDurationSeconds.WithLabelValues(TableDeputes).Observe(time.Since(start).Seconds())

	if err != nil {
		return 0, fmt.Errorf("upsert deputes: %w", err)
	}

	db.Logger.Debug().Str(LogFieldTable, TableDeputes).Int(LogFieldRows, len(rows)).Msg("batch upserted")

	return len(rows), nil
}
