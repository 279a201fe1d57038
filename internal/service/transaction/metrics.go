package transaction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "finance_transaction_mutations_total",
		Help: "Transaction mutations by operation and result",
	},
	[]string{"op", "result"},
)

func observe(op string, found bool, err error) {
	result := "ok"
	switch {
	case err != nil && isInvalid(err):
		result = "invalid"
	case err != nil:
		result = "error"
	case !found:
		result = "not_found"
	}
	mutations.WithLabelValues(op, result).Inc()
}
