package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-queue/internal/parking"
)

// queueCollector reads live slot counts from the current queue on every
// scrape.
type queueCollector struct {
	lookup   func() (*parking.InstrumentedParkingQueue, bool)
	occupied *prometheus.Desc
	capacity *prometheus.Desc
}

func newQueueCollector(lookup func() (*parking.InstrumentedParkingQueue, bool)) *queueCollector {
	return &queueCollector{
		lookup: lookup,
		occupied: prometheus.NewDesc("parking_queue_slots_occupied",
			"Number of occupied parking slots.", nil, nil),
		capacity: prometheus.NewDesc("parking_queue_slots_capacity",
			"Total number of parking slots.", nil, nil),
	}
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.occupied
	ch <- c.capacity
}

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	queue, ok := c.lookup()
	if !ok {
		return
	}

	stats := queue.Stats()
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(stats.Occupied))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(stats.Capacity))
}

func newRegistry(lookup func() (*parking.InstrumentedParkingQueue, bool)) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newQueueCollector(lookup),
	)
	return reg
}
