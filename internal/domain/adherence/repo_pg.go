package adherence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepoPG{pool: pool}
}

const scheduledItemCols = `pi.id, pi.prescription_id, p.patient_id, p.doctor_id,
	m.name, m.strength, pi.dosage, pi.times_of_day`

const scheduledItemJoins = `FROM prescription_items pi
	JOIN prescriptions p ON p.id = pi.prescription_id
	JOIN medications m ON m.id = pi.medication_id`

func scanScheduledItem(row pgx.Row) (*ScheduledItem, error) {
	var it ScheduledItem
	err := row.Scan(&it.ItemID, &it.PrescriptionID, &it.PatientID, &it.DoctorID,
		&it.MedicationName, &it.MedicationStrength, &it.Dosage, &it.TimesOfDay)
	return &it, err
}

func (r *scheduleRepoPG) queryItems(ctx context.Context, sql string, args ...interface{}) ([]*ScheduledItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduledItem
	for rows.Next() {
		it, err := scanScheduledItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) ItemsInScope(ctx context.Context, day time.Time) ([]*ScheduledItem, error) {
	return r.queryItems(ctx, `
		SELECT `+scheduledItemCols+` `+scheduledItemJoins+`
		WHERE p.status = 'ACTIVE' AND p.start_date <= $1
			AND (p.end_date IS NULL OR p.end_date >= $1)`,
		day)
}

func (r *scheduleRepoPG) ItemsInScopeForPatient(ctx context.Context, patientID uuid.UUID, day time.Time) ([]*ScheduledItem, error) {
	return r.queryItems(ctx, `
		SELECT `+scheduledItemCols+` `+scheduledItemJoins+`
		WHERE p.patient_id = $1 AND p.status = 'ACTIVE' AND p.start_date <= $2
			AND (p.end_date IS NULL OR p.end_date >= $2)`,
		patientID, day)
}

func (r *scheduleRepoPG) ItemByID(ctx context.Context, itemID uuid.UUID) (*ScheduledItem, error) {
	return scanScheduledItem(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+scheduledItemCols+` `+scheduledItemJoins+`
		WHERE pi.id = $1`,
		itemID))
}

func (r *scheduleRepoPG) ActivePatients(ctx context.Context) ([]*PatientRef, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT DISTINCT ON (u.id) u.id, u.full_name, p.doctor_id
		FROM users u
		JOIN prescriptions p ON p.patient_id = u.id AND p.status = 'ACTIVE'
		WHERE u.role = 'PATIENT' AND u.status = 'ACTIVE'
		ORDER BY u.id, p.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var patients []*PatientRef
	for rows.Next() {
		var p PatientRef
		if err := rows.Scan(&p.ID, &p.FullName, &p.DoctorID); err != nil {
			return nil, err
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}

// =========== Log Repository ===========

type logRepoPG struct{ pool *pgxpool.Pool }

func NewLogRepoPG(pool *pgxpool.Pool) LogRepository {
	return &logRepoPG{pool: pool}
}

const logCols = `id, prescription_id, prescription_item_id, patient_id, status,
	taken_at, dose_key, notes, amount, created_at`

func scanLog(row pgx.Row) (*Log, error) {
	var l Log
	err := row.Scan(&l.ID, &l.PrescriptionID, &l.PrescriptionItemID, &l.PatientID, &l.Status,
		&l.TakenAt, &l.DoseKey, &l.Notes, &l.Amount, &l.CreatedAt)
	return &l, err
}

func (r *logRepoPG) Create(ctx context.Context, l *Log) error {
	l.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO adherence_logs (id, prescription_id, prescription_item_id, patient_id,
			status, taken_at, dose_key, notes, amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		l.ID, l.PrescriptionID, l.PrescriptionItemID, l.PatientID,
		l.Status, l.TakenAt, l.DoseKey, l.Notes, l.Amount)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateDose
	}
	return err
}

func (r *logRepoPG) DoseKeysInWindow(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT dose_key FROM adherence_logs WHERE taken_at >= $1 AND taken_at < $2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = true
	}
	return keys, rows.Err()
}

func (r *logRepoPG) StatusByDoseKey(ctx context.Context, patientID uuid.UUID, from, to time.Time) (map[string]string, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT dose_key, status FROM adherence_logs
		WHERE patient_id = $1 AND taken_at >= $2 AND taken_at < $3`,
		patientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	statuses := make(map[string]string)
	for rows.Next() {
		var key, status string
		if err := rows.Scan(&key, &status); err != nil {
			return nil, err
		}
		statuses[key] = status
	}
	return statuses, rows.Err()
}

func (r *logRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Log, int, error) {
	where := `WHERE patient_id = $1`
	args := []interface{}{patientID}
	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(` AND taken_at >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(` AND taken_at < $%d`, len(args))
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM adherence_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	rows, err := conn(ctx, r.pool).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM adherence_logs %s ORDER BY taken_at DESC LIMIT $%d OFFSET $%d`,
			logCols, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *logRepoPG) CountsSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, int, error) {
	var taken, total int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'TAKEN'), COUNT(*)
		FROM adherence_logs WHERE patient_id = $1 AND taken_at >= $2`,
		patientID, since).Scan(&taken, &total)
	return taken, total, err
}

// =========== Alert Repository ===========

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository {
	return &alertRepoPG{pool: pool}
}

const alertCols = `id, patient_id, doctor_id, prescription_id, type, message,
	resolved, resolved_at, created_at`

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.PrescriptionID, &a.Type, &a.Message,
		&a.Resolved, &a.ResolvedAt, &a.CreatedAt)
	return &a, err
}

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO alerts (id, patient_id, doctor_id, prescription_id, type, message, resolved)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE)`,
		a.ID, a.PatientID, a.DoctorID, a.PrescriptionID, a.Type, a.Message)
	return err
}

func alertWhere(f AlertFilter) (string, []interface{}) {
	where := `WHERE 1=1`
	var args []interface{}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		where += fmt.Sprintf(` AND doctor_id = $%d`, len(args))
	}
	if f.PrescriptionID != nil {
		args = append(args, *f.PrescriptionID)
		where += fmt.Sprintf(` AND prescription_id = $%d`, len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if f.Resolved != nil {
		args = append(args, *f.Resolved)
		where += fmt.Sprintf(` AND resolved = $%d`, len(args))
	}
	if !f.CreatedAfter.IsZero() {
		args = append(args, f.CreatedAfter)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !f.CreatedBefore.IsZero() {
		args = append(args, f.CreatedBefore)
		where += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	return where, args
}

func (r *alertRepoPG) HasUnresolved(ctx context.Context, f AlertFilter) (bool, error) {
	resolved := false
	f.Resolved = &resolved
	where, args := alertWhere(f)
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts `+where+`)`, args...).Scan(&exists)
	return exists, err
}

func (r *alertRepoPG) List(ctx context.Context, f AlertFilter, limit, offset int) ([]*Alert, int, error) {
	where, args := alertWhere(f)

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM alerts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	rows, err := conn(ctx, r.pool).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM alerts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			alertCols, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *alertRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return scanAlert(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+alertCols+` FROM alerts WHERE id = $1`, id))
}

func (r *alertRepoPG) Resolve(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE alerts SET resolved = TRUE, resolved_at = NOW() WHERE id = $1 AND NOT resolved`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already resolved; treat resolving twice as OK.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
