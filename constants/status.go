package constants

// JobStatus is the canonical status for rows in the extraction history.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusCompleted JobStatus = "COMPLETED" // a step satisfied completeness
	JobStatusExhausted JobStatus = "EXHAUSTED" // fallback list exhausted, sparse record returned
	JobStatusRejected  JobStatus = "REJECTED"  // input failed basic validation
)
