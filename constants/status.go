package constants

// JobStatus is the canonical status for rows in scan_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // waiting in the ingest queue
	JobStatusRunning JobStatus = "RUNNING" // OCR escalation in progress
	JobStatusOCROK   JobStatus = "OCR_OK"  // text extracted and classified
	JobStatusDone    JobStatus = "DONE"    // card persisted
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)
