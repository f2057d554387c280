// Package async runs background tasks with panic recovery and structured logging.
//
// Go starts a one-shot task, Every a periodic one. Both stop when their context
// is cancelled and report failures through the supplied logger instead of
// crashing the process.
//
//	async.Every(ctx, 15*time.Second, logger, "db stats", func(ctx context.Context) error {
//		for name, stats := range conns.Stats() {
//			metrics.RecordDBStats(name, stats)
//		}
//		return nil
//	})
package async
