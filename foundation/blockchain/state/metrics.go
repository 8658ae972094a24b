package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the node metrics exposed on the debug service.
type metrics struct {
	height   prometheus.Gauge
	mempool  prometheus.Gauge
	blocks   *prometheus.CounterVec
	trans    *prometheus.CounterVec
	mineTime prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := metrics{
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "utxochain",
			Name:      "chain_height",
			Help:      "Number of blocks in the chain.",
		}),
		mempool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "utxochain",
			Name:      "mempool_transactions",
			Help:      "Number of pending transactions.",
		}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utxochain",
			Name:      "blocks_total",
			Help:      "Blocks processed by result.",
		}, []string{"result"}),
		trans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utxochain",
			Name:      "transactions_total",
			Help:      "Transactions processed by result.",
		}, []string{"result"}),
		mineTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "utxochain",
			Name:      "mining_duration_seconds",
			Help:      "Time spent solving blocks.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	collectors := []prometheus.Collector{m.height, m.mempool, m.blocks, m.trans, m.mineTime}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	return &m, nil
}

func (m *metrics) observe(bc *chain.Blockchain) {
	m.height.Set(float64(bc.Height()))
	m.mempool.Set(float64(bc.MempoolCount()))
}

func result(err error) string {
	if err != nil {
		return "rejected"
	}
	return "accepted"
}
