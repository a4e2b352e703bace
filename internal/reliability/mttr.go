package reliability

import (
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
)

// ComputeMTTR returns the recovery time of an incident, or nil while it is still bleeding.
//
// Fund-loss incidents are measured in inclusive calendar days, everything else in
// whole elapsed minutes.
func ComputeMTTR(incident domain.Incident) *domain.MTTR {
	if incident.StopBleedingAt == nil {
		return nil
	}
	stop := *incident.StopBleedingAt

	if incident.FundStatus.MeasuredInDays() {
		v := domain.Days(int64(inclusiveDays(incident.IncidentDate, stop)))
		return &v
	}

	elapsed := stop.Sub(incident.IncidentDate)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	v := domain.Minutes(int64(elapsed / time.Minute))
	return &v
}
