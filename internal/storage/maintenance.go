package db

import (
	"context"
	"fmt"
	"time"
)

type maintenanceStep struct {
	name  string
	query string
}

var maintenanceSteps = []maintenanceStep{
	{
		name: "response delays",
		query: `UPDATE questions
SET delai_reponse_jours = date_reponse - date_depot
WHERE date_reponse IS NOT NULL AND delai_reponse_jours IS NULL`,
	},
	{
		name: "deputy statistics",
		query: `UPDATE deputes d
SET nombre_questions_total = s.total,
    nombre_questions_repondues = s.repondues,
    delai_moyen_reponse = s.delai
FROM (
    SELECT dd.id,
           COUNT(q.id) AS total,
           COUNT(q.id) FILTER (WHERE q.statut = 'repondue') AS repondues,
           AVG(q.delai_reponse_jours) AS delai
    FROM deputes dd
    LEFT JOIN questions q ON q.depute_id = dd.id
    GROUP BY dd.id
) s
WHERE d.id = s.id`,
	},
	{
		name: "ministry statistics",
		query: `UPDATE ministeres m
SET nombre_questions_recues = (SELECT COUNT(*) FROM questions q WHERE q.ministere_destinataire_id = m.id),
    nombre_reponses_donnees = (SELECT COUNT(*) FROM questions q WHERE q.ministere_repondant_id = m.id),
    delai_moyen_reponse = (SELECT AVG(q.delai_reponse_jours) FROM questions q WHERE q.ministere_repondant_id = m.id),
    date_maj = NOW()`,
	},
	{
		// CONCURRENTLY cannot run inside a transaction block.
		name:  "statistics view",
		query: "REFRESH MATERIALIZED VIEW CONCURRENTLY " + statsView,
	},
}

// RunMaintenance recomputes derived columns and refreshes the statistics
// view. Steps run in order on autocommit; the first failure stops the pass.
func (db *DB) RunMaintenance(ctx context.Context) error {
	start := time.Now()

	for _, step := range maintenanceSteps {
		res, err := db.SQL.ExecContext(ctx, step.query)
		if err != nil {
			return fmt.Errorf("maintenance %s: %w", step.name, err)
		}

		affected, _ := res.RowsAffected()

		db.Logger.Debug().Str("step", step.name).Int64(LogFieldRows, affected).Msg("maintenance step done")
	}

	db.Logger.Info().Dur("duration", time.Since(start)).Msg("maintenance complete")

	return nil
}
