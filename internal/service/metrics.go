package service

import "github.com/prometheus/client_golang/prometheus"

var (
	swapsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_swap_requests_created_total",
		Help: "Swap requests created",
	})
	swapTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_swap_transitions_total",
		Help: "Successful swap request status transitions",
	}, []string{"from", "to"})
	ratingsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_ratings_submitted_total",
		Help: "Ratings submitted",
	})
	badgesAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_badges_awarded_total",
		Help: "Badges newly awarded",
	}, []string{"badge"})
	notificationsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_notifications_emitted_total",
		Help: "Notifications appended",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(swapsCreated, swapTransitions, ratingsSubmitted, badgesAwarded, notificationsEmitted)
}
