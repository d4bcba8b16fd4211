// Package notify delivers quarantine notifications to an external sink,
// batched by partition key.
//
// Delivery is best-effort by design: the entity store is the source of
// truth for the error trail, and a failed or partial push is logged and
// counted but never blocks quarantine persistence. The quarantine router
// persists locally first and only then offers the row to the batcher.
package notify
