package storage

import (
	"github.com/asdine/storm/v3"
	"github.com/wafwatch/wafwatch/pkg/alert"
)

type BoltAlertStorage struct {
	db *storm.DB
}

func NewBoltAlertStorage(db *storm.DB) *BoltAlertStorage {
	return &BoltAlertStorage{db: db}
}

func (s *BoltAlertStorage) Add(a alert.Alert) error {
	return s.db.Save(&a)
}

func (s *BoltAlertStorage) Get(id string) (*alert.Alert, error) {
	var a alert.Alert
	err := s.db.One("ID", id, &a)
	if err == storm.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *BoltAlertStorage) List() ([]alert.Alert, error) {
	var alerts []alert.Alert
	err := s.db.All(&alerts)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
