// Package metrics persists the final metrics of finished simulation runs.
//
// Runs are stored in a SQLite database through a zombiezen connection pool.
// Each connection gets WAL journaling and a busy timeout, and the schema is
// created on first use.
//
// Usage:
//
//	store, err := metrics.Open(metrics.Config{Path: "runs.db", Logger: logger})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	err = store.Record(ctx, sessionID, finalMetrics)
//	runs, err := store.List(ctx, 20)
//
// Store also implements engine.Observer, so it can be attached to an engine
// directly with ObserverFor.
package metrics
