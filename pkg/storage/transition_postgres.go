package storage

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/alarm"
)

type PostgresTransitionStorage struct {
	db *sqlx.DB
}

func NewPostgresTransitionStorage(db *sqlx.DB) *PostgresTransitionStorage {
	return &PostgresTransitionStorage{db: db}
}

type dbTransition struct {
	ID        string    `db:"id"`
	FromState string    `db:"from_state"`
	ToState   string    `db:"to_state"`
	Sum       int       `db:"sum"`
	Threshold int       `db:"threshold"`
	Time      time.Time `db:"time"`
}

func (s *PostgresTransitionStorage) Add(t alarm.Transition) error {
	_, err := s.db.Exec("INSERT INTO alarm_transitions (id, from_state, to_state, sum, threshold, time) VALUES ($1, $2, $3, $4, $5, $6)",
		t.ID, string(t.From), string(t.To), t.Sum, t.Threshold, t.Time,
	)
	return errors.Wrap(err, "postgres add transition")
}

func (s *PostgresTransitionStorage) List() ([]alarm.Transition, error) {
	rows := []dbTransition{}
	err := s.db.Select(&rows, "SELECT id, from_state, to_state, sum, threshold, time FROM alarm_transitions ORDER BY time")
	if err != nil {
		return nil, errors.Wrap(err, "postgres list transitions")
	}

	transitions := []alarm.Transition{}
	for _, row := range rows {
		transitions = append(transitions, alarm.Transition{
			ID:        row.ID,
			From:      alarm.State(row.FromState),
			To:        alarm.State(row.ToState),
			Sum:       row.Sum,
			Threshold: row.Threshold,
			Time:      row.Time,
		})
	}
	return transitions, nil
}
