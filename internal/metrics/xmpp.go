package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	XMPPConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiox_xmpp_connections_total",
			Help: "Total number of XMPP client connect attempts, by account and outcome.",
		},
		[]string{"account", "outcome"},
	)

	XMPPConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aiox_xmpp_connections_active",
			Help: "Number of XMPP accounts currently online.",
		},
		[]string{"account"},
	)

	XMPPStanzasInTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiox_xmpp_stanzas_in_total",
			Help: "Total number of stanzas received, by account and stanza kind.",
		},
		[]string{"account", "kind"},
	)

	XMPPStanzasOutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiox_xmpp_stanzas_out_total",
			Help: "Total number of stanzas sent, by account and stanza kind.",
		},
		[]string{"account", "kind"},
	)

	XMPPPolicyDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiox_xmpp_policy_drops_total",
			Help: "Total number of inbound messages dropped by the policy gate chain, by reason.",
		},
		[]string{"account", "reason"},
	)

	XMPPPairingChallengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiox_xmpp_pairing_challenges_total",
			Help: "Total number of first-contact pairing challenges issued, by account.",
		},
		[]string{"account"},
	)

	XMPPDispatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiox_xmpp_dispatch_failures_total",
			Help: "Total number of inbound-pipeline dispatch failures, by account and stage.",
		},
		[]string{"account", "stage"},
	)
)

func init() {
	prometheus.MustRegister(
		XMPPConnectionsTotal,
		XMPPConnectionsActive,
		XMPPStanzasInTotal,
		XMPPStanzasOutTotal,
		XMPPPolicyDropsTotal,
		XMPPPairingChallengesTotal,
		XMPPDispatchFailuresTotal,
	)
}
