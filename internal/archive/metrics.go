package archive

import "github.com/prometheus/client_golang/prometheus"

var (
	archiveRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bicopilot_archive_runs_total",
			Help: "Total number of archive runs by status.",
		},
		[]string{"status"},
	)
	archiveSnapshotBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bicopilot_archive_snapshot_bytes_total",
			Help: "Total parquet bytes uploaded by archive runs.",
		},
	)
	archiveRowsExportedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bicopilot_archive_rows_exported_total",
			Help: "Total table rows exported to snapshots.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		archiveRunsTotal,
		archiveSnapshotBytesTotal,
		archiveRowsExportedTotal,
	)
}
