package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	bolt "go.etcd.io/bbolt"
)

var _ prometheus.Collector = (*BoltStore)(nil)

var (
	boltWritesDesc = prometheus.NewDesc(
		"scimd_boltdb_writes_total",
		"Total number of boltdb writes",
		nil, nil)

	boltReadsDesc = prometheus.NewDesc(
		"scimd_boltdb_reads_total",
		"Total number of boltdb reads",
		nil, nil)

	boltUsersDesc = prometheus.NewDesc(
		"scimd_cached_users_total",
		"Number of user resources in the cache",
		nil, nil)
)

// Describe returns all descriptions of the collector.
func (s *BoltStore) Describe(ch chan<- *prometheus.Desc) {
	ch <- boltWritesDesc
	ch <- boltReadsDesc
	ch <- boltUsersDesc
}

// Collect returns the current state of all metrics of the collector.
func (s *BoltStore) Collect(ch chan<- prometheus.Metric) {
	if s.db == nil {
		return
	}
	stats := s.db.Stats()

	ch <- prometheus.MustNewConstMetric(
		boltReadsDesc,
		prometheus.CounterValue,
		float64(stats.TxN),
	)
	ch <- prometheus.MustNewConstMetric(
		boltWritesDesc,
		prometheus.CounterValue,
		float64(stats.TxStats.Write),
	)

	var users int
	_ = s.db.View(func(tx *bolt.Tx) error {
		users = tx.Bucket(usersBucket).Stats().KeyN
		return nil
	})
	ch <- prometheus.MustNewConstMetric(
		boltUsersDesc,
		prometheus.GaugeValue,
		float64(users),
	)
}
