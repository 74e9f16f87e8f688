// Package pipeline reconciles the local rate store with the feed.
//
// Work flows through two persisted queues:
//
//	year   : YearTask(academicYear)
//	record : UpsertTask(feed record) and DeleteTask(localId)
//
// A YearTask fetches one academic year from the feed and fans out one
// UpsertTask per record plus one DeleteTask per active local record the
// feed no longer lists. Upserts apply only when the feed timestamp is not
// older than the stored one; deletes only flip the active flag.
//
// Tasks are claimed under a lease and acknowledged after processing, so a
// crashed worker's task is handed out again once the lease runs out. A task
// that fails is logged and acknowledged; retrying is left to whoever
// schedules the next YearTask.
package pipeline
