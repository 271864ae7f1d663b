package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Overview(ctx context.Context, since time.Time) (*Overview, error) {
	var o Overview
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM prescriptions),
			(SELECT COUNT(*) FROM prescriptions WHERE status = 'ACTIVE'),
			(SELECT COUNT(DISTINCT patient_id) FROM prescriptions WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM alerts WHERE NOT resolved),
			(SELECT COALESCE(
				COUNT(*) FILTER (WHERE status = 'TAKEN') * 100.0 / NULLIF(COUNT(*), 0), 100)
				FROM adherence_logs WHERE taken_at >= $1)`,
		since).Scan(&o.TotalPrescriptions, &o.ActivePrescriptions, &o.ActivePatients,
		&o.UnresolvedAlerts, &o.AdherenceRate)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
