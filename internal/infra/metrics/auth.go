package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics exposes counters for the account lifecycle: failed logins,
// lockouts, verification codes issued, and registrations. All record methods
// are nil-safe so callers can run without metrics wired.
type AuthMetrics struct {
	LoginFailures prometheus.Counter
	Lockouts      prometheus.Counter
	CodesIssued   *prometheus.CounterVec
	Registrations *prometheus.CounterVec
}

// NewAuthMetrics constructs and registers the lifecycle collectors.
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &AuthMetrics{
		LoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iam",
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "Total number of rejected login attempts.",
		}),
		Lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iam",
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Total number of lockouts tripped by consecutive login failures.",
		}),
		CodesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iam",
			Subsystem: "auth",
			Name:      "verification_codes_issued_total",
			Help:      "Total number of verification codes issued, partitioned by purpose.",
		}, []string{"purpose"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iam",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Total number of completed registrations, partitioned by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.LoginFailures, m.Lockouts, m.CodesIssued, m.Registrations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register auth collector: %w", err)
		}
	}

	return m, nil
}

// RecordLoginFailure counts one rejected login attempt.
func (m *AuthMetrics) RecordLoginFailure() {
	if m == nil || m.LoginFailures == nil {
		return
	}
	m.LoginFailures.Inc()
}

// RecordLockout counts one tripped lockout.
func (m *AuthMetrics) RecordLockout() {
	if m == nil || m.Lockouts == nil {
		return
	}
	m.Lockouts.Inc()
}

// RecordCodeIssued counts one issued verification code for the purpose.
func (m *AuthMetrics) RecordCodeIssued(purpose string) {
	if m == nil || m.CodesIssued == nil {
		return
	}
	m.CodesIssued.WithLabelValues(purpose).Inc()
}

// RecordRegistration counts one completed registration. Outcome is either
// "created" or "reactivated".
func (m *AuthMetrics) RecordRegistration(reactivated bool) {
	if m == nil || m.Registrations == nil {
		return
	}
	outcome := "created"
	if reactivated {
		outcome = "reactivated"
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}
