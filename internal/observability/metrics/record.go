package metrics

import (
	"time"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ResultOf maps an error to a result label.
func ResultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Resolution records a configuration resolution. result is "ok" or the
// kind of validation failure.
func Resolution(intent, result string) {
	if !enabled {
		return
	}
	resolutionsTotal.WithLabelValues(intent, result).Inc()
}

// RPCProbe records an RPC endpoint probe.
func RPCProbe(network, result string) {
	if !enabled {
		return
	}
	rpcProbesTotal.WithLabelValues(network, result).Inc()
}

// Verification records a source verification run.
func Verification(provider, result string) {
	if !enabled {
		return
	}
	verificationsTotal.WithLabelValues(provider, result).Inc()
}

// ExplorerRequest records the latency of one block explorer API call.
// Its signature matches explorer.Observer.
func ExplorerRequest(action string, d time.Duration, err error) {
	if !enabled {
		return
	}
	explorerDuration.WithLabelValues(action, ResultOf(err)).Observe(d.Seconds())
}

// RunFinished stamps the completion time of a command.
func RunFinished(command string, err error) {
	if !enabled {
		return
	}
	lastRunTimestamp.WithLabelValues(command, ResultOf(err)).Set(float64(time.Now().Unix()))
}
