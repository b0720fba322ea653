package storage

import (
	"os"
	"path"

	"github.com/asdine/storm/v3"
	"github.com/wafwatch/wafwatch/pkg/alarm"
	"github.com/wafwatch/wafwatch/pkg/alert"
)

// OpenBoltDB opens (creating if needed) the local BoltDB database
// at ~/.wafwatch/wafwatch.db.
func OpenBoltDB() (*storm.DB, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	folder := path.Join(home, ".wafwatch")
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		err := os.Mkdir(folder, os.FileMode(0700))
		if err != nil {
			return nil, err
		}
	}
	file := path.Join(folder, "wafwatch.db")

	db, err := storm.Open(file)
	if err != nil {
		return nil, err
	}

	err = db.Init(alert.Alert{})
	if err != nil {
		return nil, err
	}
	err = db.Init(alarm.Transition{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
