package storage

import (
	"github.com/asdine/storm/v3"
	"github.com/jmoiron/sqlx"
	"github.com/wafwatch/wafwatch/pkg/alarm"
	"github.com/wafwatch/wafwatch/pkg/alert"
)

// AlertStorage persists matched events with their rendered
// notifications.
type AlertStorage interface {
	Add(a alert.Alert) error
	Get(id string) (*alert.Alert, error)
	List() ([]alert.Alert, error)
}

// TransitionStorage persists alarm state transitions so operators
// can audit when the alarm fired and cleared.
type TransitionStorage interface {
	Add(t alarm.Transition) error
	List() ([]alarm.Transition, error)
}

// Storage is the persistence layer of the application.
type Storage struct {
	Alert      AlertStorage
	Transition TransitionStorage
}

// BuildBoltStorage builds the storage layer with BoltDB as the driver
func BuildBoltStorage(db *storm.DB) *Storage {
	return &Storage{
		Alert:      NewBoltAlertStorage(db),
		Transition: NewBoltTransitionStorage(db),
	}
}

// BuildPostgresStorage builds the storage layer with Postgres as the driver
func BuildPostgresStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Alert:      NewPostgresAlertStorage(db),
		Transition: NewPostgresTransitionStorage(db),
	}
}

// BuildInMemoryStorage builds the storage layer using in-memory maps
func BuildInMemoryStorage() *Storage {
	return &Storage{
		Alert:      NewInMemoryAlertStorage(),
		Transition: NewInMemoryTransitionStorage(),
	}
}
