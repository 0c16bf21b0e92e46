package api

type (
	// WorkflowStatistics aggregates instance and step execution counts along
	// with completion timing across the whole store or a single definition
	WorkflowStatistics struct {
		InstanceCounts map[WorkflowStatus]int64 `json:"instance_counts"`
		StepCounts     map[StepStatus]int64     `json:"step_counts,omitempty"`
		TotalInstances int64                    `json:"total_instances"`

		// AvgCompletionMinutes averages completedAt-startedAt over
		// COMPLETED instances; zero when none have completed
		AvgCompletionMinutes float64 `json:"avg_completion_minutes"`
	}

	// StepStatistics aggregates step execution counts and timing for one
	// workflow instance
	StepStatistics struct {
		Counts     map[StepStatus]int64 `json:"counts"`
		TotalSteps int64                `json:"total_steps"`

		// AvgExecutionSeconds averages completedAt-startedAt over
		// COMPLETED executions; zero when none have completed
		AvgExecutionSeconds float64 `json:"avg_execution_seconds"`
	}
)
