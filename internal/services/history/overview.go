package history

import (
	"slices"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// Overview merges the daily stats of the last days with today's live
// aggregates into a multi-key summary. It returns an empty overview when
// there is no data.
func (s *Store) Overview(now time.Time, days int) (*models.HistoryOverview, error) {
	since := now.AddDate(0, 0, -days)
	past, err := s.log.DailyStatsSince(since)
	if err != nil {
		return nil, &PersistError{Op: "overview", Err: err}
	}
	today, err := s.log.TodayStats(now, s.params.Retention.LimitHitPct)
	if err != nil {
		return nil, &PersistError{Op: "overview", Err: err}
	}

	return buildOverview(now, append(past, today...)), nil
}

func buildOverview(now time.Time, stats []models.DailyStat) *models.HistoryOverview {
	ov := &models.HistoryOverview{Generated: now}

	perKey := make(map[models.Key][]models.DailyStat)
	var keyOrder []models.Key
	dayMax := make(map[string]int)
	var dayOrder []string

	for _, st := range stats {
		if _, ok := perKey[st.Key]; !ok {
			keyOrder = append(keyOrder, st.Key)
		}
		perKey[st.Key] = append(perKey[st.Key], st)

		cur, ok := dayMax[st.Date]
		if !ok {
			dayOrder = append(dayOrder, st.Date)
		}
		dayMax[st.Date] = max(cur, st.AvgPct)
	}

	if len(dayOrder) == 0 {
		return ov
	}

	slices.Sort(keyOrder)
	for _, k := range keyOrder {
		sum := models.Summarize(k, perKey[k])
		ov.Keys = append(ov.Keys, sum)
		ov.TotalHits += sum.LimitHits
	}

	slices.Sort(dayOrder)
	total := 0
	for i, d := range dayOrder {
		v := dayMax[d]
		ov.DayMax = append(ov.DayMax, models.DayValue{Date: d, Pct: v})
		total += v
		if i == 0 || v > ov.HighestPct {
			ov.HighestDay, ov.HighestPct = d, v
		}
		if i == 0 || v < ov.LowestPct {
			ov.LowestDay, ov.LowestPct = d, v
		}
	}
	ov.TotalDays = len(dayOrder)
	ov.AvgPct = (2*total + ov.TotalDays) / (2 * ov.TotalDays)
	return ov
}
