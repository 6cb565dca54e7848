package enums

// JobExecutionStatus is the outcome recorded for a periodic job run.
type JobExecutionStatus string

const (
	JobExecutionStatusSucceeded JobExecutionStatus = "succeeded"
	JobExecutionStatusFailed    JobExecutionStatus = "failed"
)

// String implements fmt.Stringer.
func (s JobExecutionStatus) String() string {
	return string(s)
}
