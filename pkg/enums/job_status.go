package enums

import "fmt"

// JobStatus tracks a queued job through its lifecycle. Succeeded jobs are
// deleted rather than transitioned, so no terminal success state exists.
type JobStatus string

const (
	JobStatusQueued JobStatus = "queued"
	JobStatusActive JobStatus = "active"
	JobStatusFailed JobStatus = "failed"
)

var validJobStatuses = []JobStatus{
	JobStatusQueued,
	JobStatusActive,
	JobStatusFailed,
}

// String returns the literal string for the status.
func (j JobStatus) String() string {
	return string(j)
}

// IsValid reports whether the status is known.
func (j JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJobStatus converts raw input into a JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
