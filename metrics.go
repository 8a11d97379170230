package otpnotes

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts challenge and credential activity. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ChallengesIssued   *prometheus.CounterVec
	ChallengesVerified *prometheus.CounterVec
	ChallengesRejected *prometheus.CounterVec
	CredentialsIssued  *prometheus.CounterVec
	FederatedLogins    *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg (when non nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChallengesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otpnotes_challenges_issued_total",
			Help: "One-time codes generated and delivered",
		}, []string{"purpose"}),
		ChallengesVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otpnotes_challenges_verified_total",
			Help: "One-time codes successfully verified",
		}, []string{"purpose"}),
		ChallengesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otpnotes_challenges_rejected_total",
			Help: "Challenge requests or verifications rejected, by reason",
		}, []string{"purpose", "reason"}),
		CredentialsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otpnotes_credentials_issued_total",
			Help: "Session credentials minted",
		}, []string{"method"}),
		FederatedLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otpnotes_federated_logins_total",
			Help: "Federated login attempts, by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.ChallengesIssued, m.ChallengesVerified, m.ChallengesRejected, m.CredentialsIssued, m.FederatedLogins)
	}
	return m
}

func (m *Metrics) challengeIssued(p ChallengePurpose) {
	if m != nil {
		m.ChallengesIssued.WithLabelValues(string(p)).Inc()
	}
}

func (m *Metrics) challengeVerified(p ChallengePurpose) {
	if m != nil {
		m.ChallengesVerified.WithLabelValues(string(p)).Inc()
	}
}

func (m *Metrics) challengeRejected(p ChallengePurpose, code ErrCode) {
	if m != nil {
		m.ChallengesRejected.WithLabelValues(string(p), string(code)).Inc()
	}
}

func (m *Metrics) credentialIssued(method string) {
	if m != nil {
		m.CredentialsIssued.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) federatedLogin(result string) {
	if m != nil {
		m.FederatedLogins.WithLabelValues(result).Inc()
	}
}
