package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

var (
	plansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_plans_total",
			Help: "Scene planning calls by provider and result.",
		},
		[]string{"provider", "result"},
	)

	imagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_images_total",
			Help: "Image generation calls by provider and result.",
		},
		[]string{"provider", "result"},
	)
)

func ObservePlan(provider string, err error) {
	plansTotal.WithLabelValues(provider, result(err)).Inc()
}

func ObserveImage(provider string, err error) {
	imagesTotal.WithLabelValues(provider, result(err)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
