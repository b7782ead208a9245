package database

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// UnitOfWork runs groups of repository calls as one MongoDB transaction
type UnitOfWork struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

// NewUnitOfWork creates a new Unit of Work instance. Transactions read a
// snapshot and commit with majority write concern.
func NewUnitOfWork(client *mongo.Client) *UnitOfWork {
	return &UnitOfWork{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

// WithTransaction executes fn within a MongoDB transaction. fn receives the
// session context, so repository calls made with it join the transaction.
// Units touching the same document hit a write conflict and the driver
// retries the loser, which serializes them. key only labels the unit in
// errors and logs.
func (uow *UnitOfWork) WithTransaction(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	session, err := uow.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session for %s: %w", key, err)
	}
	defer session.EndSession(ctx)

	attempts := 0
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		attempts++
		return nil, fn(sc)
	}, uow.opts)
	if attempts > 1 {
		log.Printf("[TX] %s committed after %d attempts (err=%v)", key, attempts, err)
	}
	return err
}
