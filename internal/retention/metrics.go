package retention

import "github.com/prometheus/client_golang/prometheus"

var (
	retentionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqloslav_retention_runs_total",
			Help: "Total number of retention runs by status.",
		},
		[]string{"status"},
	)
	localFilesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_retention_local_files_deleted_total",
			Help: "Result files removed from the output directory.",
		},
	)
	slackFilesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_retention_slack_files_deleted_total",
			Help: "Uploaded result files deleted from Slack.",
		},
	)
	claimsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_retention_claims_pruned_total",
			Help: "Processed event claims removed from the idempotency store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		retentionRunsTotal,
		localFilesDeletedTotal,
		slackFilesDeletedTotal,
		claimsPrunedTotal,
	)
}
