package shared

import "context"

// TxManager runs fn in one database transaction. Repositories called with
// the ctx handed to fn join that transaction; nested calls reuse it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
