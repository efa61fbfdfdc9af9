package zephyr

// Execution is one run of a test inside a cycle, as listed by the remote service.
type Execution struct {
	ID       string
	IssueKey string
	Status   StatusCode
	Comment  string
	CycleID  string
}

// Cycle is a named grouping of executions.
type Cycle struct {
	ID          string
	Name        string
	ProjectID   string
	VersionID   string
	Description string
}

// UpdatedExecution is the answer to a single status change. Acknowledged is set when the
// remote service accepted the change without returning a record.
type UpdatedExecution struct {
	ID           string
	Status       StatusCode
	Comment      string
	Acknowledged bool
	StatusCode   int
	Raw          []byte
}

// BulkResult is the answer to a bulk status change.
type BulkResult struct {
	IDs          []string
	Status       StatusCode
	JobToken     string
	Acknowledged bool
	StatusCode   int
	Raw          []byte
}
