package middleware

import "context"

type batchKey struct{}

// WithBatchSubRequest marks ctx as belonging to a request dispatched from $batch.
func WithBatchSubRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, batchKey{}, true)
}

func IsBatchSubRequest(ctx context.Context) bool {
	v, _ := ctx.Value(batchKey{}).(bool)
	return v
}
