package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pagebuilder", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pagebuilder", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	ContentSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pagebuilder", Name: "content_saves_total", Help: "Content save attempts by type and result (ok, invalid, forbidden, error)."},
		[]string{"type", "result"},
	)
	ContentDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pagebuilder", Name: "content_deletes_total", Help: "Content deletions by result."},
		[]string{"result"},
	)
	AjaxActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pagebuilder", Name: "ajax_actions_total", Help: "Editor ajax actions by name and result."},
		[]string{"action", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ContentSaves)
	reg.MustRegister(ContentDeletes)
	reg.MustRegister(AjaxActions)
}
