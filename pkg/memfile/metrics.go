package memfile

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	createsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memfile_creates_total",
		Help: "Total number of shared mappings created by this process.",
	})
	opensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memfile_opens_total",
		Help: "Total number of attachments to existing shared mappings.",
	})
	openHandles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memfile_open_handles",
		Help: "Handles currently attached in this process.",
	})
	lockAcquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memfile_lock_acquisitions_total",
		Help: "Guard acquisitions by lock kind and operation.",
	}, []string{"kind", "op"})
)

func init() {
	prometheus.MustRegister(createsTotal, opensTotal, openHandles, lockAcquisitions)
}
