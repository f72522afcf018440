package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotblauer/fieldcat/catdb/cache"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
	"go.etcd.io/bbolt"
)

var ErrNoLastResult = errors.New("no last result")

var lastKey = []byte("last")

// Device is the persistent identity of this agent installation.
type Device struct {
	ID      conceptual.DeviceID
	Datadir string
}

func (d *Device) dbPath() string {
	return filepath.Join(d.Datadir, params.AppDBName)
}

// LoadDevice reads the device id from the app database under datadir,
// generating and persisting a random one on first run.
// A non-empty override replaces any stored id.
func LoadDevice(datadir string, override conceptual.DeviceID) (*Device, error) {
	if err := os.MkdirAll(datadir, 0755); err != nil {
		return nil, err
	}
	d := &Device{Datadir: datadir}
	db, err := bbolt.Open(d.dbPath(), 0600, nil)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(params.AppBucket)
		if err != nil {
			return err
		}
		if !override.Empty() {
			d.ID = override
			return bucket.Put(params.AppDeviceIDKey, []byte(override))
		}
		if v := bucket.Get(params.AppDeviceIDKey); len(v) > 0 {
			d.ID = conceptual.DeviceID(v)
			return nil
		}
		d.ID = conceptual.DeviceID(uuid.New().String())
		return bucket.Put(params.AppDeviceIDKey, []byte(d.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("load device id: %w", err)
	}
	return d, nil
}

// PersistLastResult writes the last known result cached for this device to disk.
func (d *Device) PersistLastResult() error {
	res, ok := cache.GetLastKnown(d.ID)
	if !ok {
		return ErrNoLastResult
	}
	db, err := bbolt.Open(d.dbPath(), 0600, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(params.AppBucket)
		if err != nil {
			return err
		}
		b, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return bucket.Put(lastKey, b)
	})
}

// RestoreLastResult loads the persisted last result and seeds the cache with it.
func (d *Device) RestoreLastResult() (fix.FusedResult, error) {
	res := fix.FusedResult{}
	db, err := bbolt.Open(d.dbPath(), 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return res, err
	}
	defer db.Close()
	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.AppBucket)
		if bucket == nil {
			return ErrNoLastResult
		}
		v := bucket.Get(lastKey)
		if v == nil {
			return ErrNoLastResult
		}
		return json.Unmarshal(v, &res)
	})
	if err != nil {
		return res, err
	}
	cache.SetLastKnownTTL(d.ID, res)
	return res, nil
}
