// Package keystore opens the session.Repository selected by configuration.
package keystore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/storage/keystore/file"
	"github.com/trezcool/masomo-portal/storage/keystore/inmem"
	"github.com/trezcool/masomo-portal/storage/keystore/postgres"
	"github.com/trezcool/masomo-portal/storage/keystore/redis"
)

// Keystore is an opened session.Repository and the connection behind it.
type Keystore struct {
	session.Repository
	Driver string
	close  func() error
}

func (k *Keystore) Close() error {
	if k.close == nil {
		return nil
	}
	return k.close()
}

// Open opens the repository of conf.Storage.Driver. Postgres migrations are applied.
func Open(ctx context.Context, conf *core.Config) (*Keystore, error) {
	sc := conf.Storage
	switch sc.Driver {
	case core.StorageFile, "":
		store, err := filestore.New(sc.Path)
		if err != nil {
			return nil, err
		}
		return &Keystore{Repository: store, Driver: core.StorageFile}, nil

	case core.StorageMemory:
		return &Keystore{Repository: inmemstore.New(), Driver: sc.Driver}, nil

	case core.StorageRedis:
		client, err := redisstore.Open(ctx, sc.RedisAddr, sc.RedisPassword, sc.RedisDB)
		if err != nil {
			return nil, err
		}
		return &Keystore{Repository: redisstore.New(client, sc.RedisPrefix), Driver: sc.Driver, close: client.Close}, nil

	case core.StoragePostgres:
		db, err := pgstore.Open(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err = pgstore.Migrate(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Keystore{Repository: pgstore.New(db), Driver: sc.Driver, close: db.Close}, nil
	}
	return nil, errors.Errorf("unknown storage driver %q", sc.Driver)
}
