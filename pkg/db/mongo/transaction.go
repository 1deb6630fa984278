package mongo

import (
	"context"
	"fmt"
	apperrors "lagoonstay/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Supported probes whether the connected deployment can run
// multi-document transactions (replica set or mongos). Standalone
// servers reject the transaction start, which is the signal used at
// startup to choose the lock-based reservation path instead.
func Supported(ctx context.Context, tm TransactionManager) bool {
	err := tm.ExecuteTransaction(ctx, func(mongo.SessionContext) error { return nil })
	return err == nil
}
