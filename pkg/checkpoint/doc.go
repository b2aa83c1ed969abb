// Package checkpoint stores harvest positions in Redis so that an interrupted
// harvest can be resumed from the last page whose rows reached the output.
//
// A checkpoint is keyed by everything that identifies a harvest: endpoint,
// start date, target series and output path. The driver saves one after each
// page and deletes it once the last page has been written:
//
//	manager := checkpoint.NewManager(redisClient)
//	key := checkpoint.Key{BaseURL: baseURL, From: "2020-01-01", Series: series, Output: "data.csv"}
//
//	if entry, err := manager.Get(ctx, key); err == nil {
//		req.ResumeToken = entry.Token
//	}
//	driver := harvest.NewDriver(fetcher, sink, harvest.WithCheckpointer(manager.Saver(key)))
//
// Entries are stored as JSON and never expire on their own.
package checkpoint
