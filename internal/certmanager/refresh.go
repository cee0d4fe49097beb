package certmanager

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// developmentRenewalFraction sets the renewal window for development
// certificates: they are considered due for renewal inside their last 10%
// of validity. ACME certificates are due inside ACMERenewalDays of expiry,
// and static certificates are never auto-renewed — once inside
// ACMERenewalDays of expiry they are only reported on, via
// renewalSkippedTotal and a warning log.
const developmentRenewalFraction = 0.10

var (
	renewalAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratengine",
		Subsystem: "certmanager",
		Name:      "renewal_attempts_total",
		Help:      "Certificate renewal attempts by role and outcome.",
	}, []string{"role", "outcome"})

	renewalSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratengine",
		Subsystem: "certmanager",
		Name:      "renewal_skipped_total",
		Help:      "Renewal checks skipped because the active mode does not auto-renew (static).",
	}, []string{"role"})

	certificateExpirySeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ratengine",
		Subsystem: "certmanager",
		Name:      "certificate_expiry_seconds",
		Help:      "Seconds until the active certificate's NotAfter, by role.",
	}, []string{"role"})
)

// Collectors returns the certmanager's prometheus collectors for
// registration with the Engine's registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{renewalAttemptsTotal, renewalSkippedTotal, certificateExpirySeconds}
}

func (m *Manager) runRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.RefreshCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndRefresh(ctx, "http", &m.httpBundle)
			if m.cfg.GRPCEnabled {
				m.checkAndRefresh(ctx, "grpc", &m.grpcBundle)
			}
		}
	}
}

func (m *Manager) renewalThreshold(bundle *Bundle) time.Duration {
	switch m.cfg.Mode {
	case ModeACME, ModeStatic:
		return time.Duration(m.cfg.ACMERenewalDays) * 24 * time.Hour
	case ModeDevelopment:
		total := bundle.NotAfter.Sub(bundle.issuedAt)
		return time.Duration(float64(total) * developmentRenewalFraction)
	default:
		return 0
	}
}

type bundleSlot interface {
	Load() *Bundle
}

func (m *Manager) checkAndRefresh(ctx context.Context, role string, slot bundleSlot) {
	bundle := slot.Load()
	if bundle == nil {
		return
	}

	now := time.Now()
	certificateExpirySeconds.WithLabelValues(role).Set(bundle.NotAfter.Sub(now).Seconds())

	if m.cfg.Mode == ModeStatic && !m.cfg.ForceRotation {
		if bundle.ExpiringWithin(m.renewalThreshold(bundle), now) {
			renewalSkippedTotal.WithLabelValues(role).Inc()
			slog.Warn("static certificate approaching expiry; auto-renewal not supported for static mode",
				"role", role, "not_after", bundle.NotAfter)
		}
		return
	}

	threshold := m.renewalThreshold(bundle)
	if !m.cfg.ForceRotation && !bundle.ExpiringWithin(threshold, now) {
		return
	}

	alpn := httpALPN
	if role == "grpc" {
		alpn = grpcALPN
	}

	fresh, ca, err := m.provision(ctx, alpn)
	if err != nil {
		renewalAttemptsTotal.WithLabelValues(role, "error").Inc()
		slog.Error("certificate renewal failed", "role", role, "error", err)
		return
	}
	if ca != nil {
		m.ca = ca
	}
	if fresh.ClientCAs == nil {
		fresh.ClientCAs = bundle.ClientCAs
	}

	switch role {
	case "http":
		m.httpBundle.Store(fresh)
	case "grpc":
		m.grpcBundle.Store(fresh)
	}
	renewalAttemptsTotal.WithLabelValues(role, "success").Inc()
	slog.Info("certificate renewed", "role", role, "not_after", fresh.NotAfter)
}
