package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/alert"
)

type PostgresAlertStorage struct {
	db *sqlx.DB
}

func NewPostgresAlertStorage(db *sqlx.DB) *PostgresAlertStorage {
	return &PostgresAlertStorage{db: db}
}

// dbAlert is the row shape of the alerts table. The full audit event
// is stored as a JSON column rather than flattened, since its
// requestParameters are free-form.
type dbAlert struct {
	ID      string    `db:"id"`
	Subject string    `db:"subject"`
	Body    string    `db:"body"`
	Time    time.Time `db:"time"`
	Event   []byte    `db:"event"`
}

func (s *PostgresAlertStorage) Add(a alert.Alert) error {
	event, err := json.Marshal(a.Event)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = s.db.Exec("INSERT INTO alerts (id, subject, body, time, event) VALUES ($1, $2, $3, $4, $5)",
		a.ID, a.Subject, a.Body, a.Time, event,
	)
	return errors.Wrap(err, "postgres add alert")
}

func (s *PostgresAlertStorage) Get(id string) (*alert.Alert, error) {
	var row dbAlert
	err := s.db.Get(&row, "SELECT id, subject, body, time, event FROM alerts WHERE id=$1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres get alert")
	}
	return rowToAlert(row)
}

func (s *PostgresAlertStorage) List() ([]alert.Alert, error) {
	rows := []dbAlert{}
	err := s.db.Select(&rows, "SELECT id, subject, body, time, event FROM alerts ORDER BY time")
	if err != nil {
		return nil, errors.Wrap(err, "postgres list alerts")
	}

	alerts := []alert.Alert{}
	for _, row := range rows {
		a, err := rowToAlert(row)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, nil
}

func rowToAlert(row dbAlert) (*alert.Alert, error) {
	a := alert.Alert{
		ID:      row.ID,
		Subject: row.Subject,
		Body:    row.Body,
		Time:    row.Time,
	}
	if err := json.Unmarshal(row.Event, &a.Event); err != nil {
		return nil, errors.Wrap(err, "postgres unmarshalling alert event")
	}
	return &a, nil
}
