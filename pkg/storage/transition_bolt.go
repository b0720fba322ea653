package storage

import (
	"github.com/asdine/storm/v3"
	"github.com/wafwatch/wafwatch/pkg/alarm"
)

type BoltTransitionStorage struct {
	db *storm.DB
}

func NewBoltTransitionStorage(db *storm.DB) *BoltTransitionStorage {
	return &BoltTransitionStorage{db: db}
}

func (s *BoltTransitionStorage) Add(t alarm.Transition) error {
	return s.db.Save(&t)
}

func (s *BoltTransitionStorage) List() ([]alarm.Transition, error) {
	var transitions []alarm.Transition
	err := s.db.All(&transitions)
	if err != nil {
		return nil, err
	}
	return transitions, nil
}
