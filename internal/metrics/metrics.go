package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scans_total", Help: "Symbol scans executed by the auto-trading loop"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted to the broker gateway"},
		[]string{"symbol", "side"},
	)
	ClosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "position_closes_total", Help: "Positions closed by the monitor, by reason"},
		[]string{"symbol", "reason"},
	)
	LoopErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loop_errors_total", Help: "Recovered errors inside the polling loops"},
		[]string{"loop"},
	)
)

func init() {
	prometheus.MustRegister(ScansTotal, OrdersTotal, ClosesTotal, LoopErrorsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
