package pipeline

import (
	"time"

	"github.com/conveyordev/conveyor/pkg/provider"
	"github.com/sirupsen/logrus"
)

// QuotaGuard converts provider quota exhaustion into a persisted alert
// and a Pause outcome. Quota exhaustion is never retried, regardless of
// the stage's remaining iteration budget: looping against an exhausted
// quota is useless and potentially harmful.
type QuotaGuard struct {
	alerts *AlertStore
	log    *logrus.Entry
}

// NewQuotaGuard creates a guard writing to the given alert store.
func NewQuotaGuard(alerts *AlertStore) *QuotaGuard {
	return &QuotaGuard{
		alerts: alerts,
		log:    logrus.WithField("component", "quota_guard"),
	}
}

// Handle persists exactly one alert for the exhaustion event and returns
// the Pause outcome for the orchestrator to apply.
func (g *QuotaGuard) Handle(qe *provider.QuotaError, st *State) (Outcome, error) {
	alert := &Alert{
		Provider:  qe.Provider,
		Model:     qe.Model,
		Reason:    qe.Reason,
		Timestamp: time.Now().UTC(),
		RequiredAction: "Restore provider budget (billing/quota), acknowledge this alert with " +
			"`conveyor alerts ack`, then reset the stage and resume the loop.",
		Snapshot: st.Clone(),
	}

	path, err := g.alerts.Write(alert)
	if err != nil {
		return Outcome{}, err
	}

	g.log.WithFields(logrus.Fields{
		"provider": qe.Provider,
		"model":    qe.Model,
		"alert":    path,
	}).Error("provider quota exhausted, pausing pipeline")

	return Pause(alert), nil
}
