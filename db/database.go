package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is the connection-pool handle passed to every repository.
type Database interface {
	GetDB() *gorm.DB
	// Transaction runs fn inside one transaction, committing when fn returns
	// nil and rolling back otherwise. Called on a handle that is already
	// transactional it joins the running transaction.
	Transaction(ctx context.Context, fn func(tx Database) error) error
	Ping(ctx context.Context) error
	Close() error
	Dialect() string
}

type GormDatabase struct {
	DB   *gorm.DB
	inTx bool
}

func (g *GormDatabase) GetDB() *gorm.DB { return g.DB }

func (g *GormDatabase) Dialect() string { return g.DB.Dialector.Name() }

func (g *GormDatabase) Transaction(ctx context.Context, fn func(tx Database) error) error {
	if g.inTx {
		return fn(g)
	}
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormDatabase{DB: tx, inTx: true})
	})
}

func (g *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormDatabase) Close() error {
	if g.inTx {
		return nil
	}
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
