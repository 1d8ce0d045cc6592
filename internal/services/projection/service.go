package projection

import (
	"sync"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// SeriesSource yields a consistent copy of a key's samples, oldest first.
type SeriesSource interface {
	Snapshot(key models.Key) []models.Sample
}

// Service computes estimates from a series source and caches the latest
// estimate per key for readers such as the UI and status server.
type Service struct {
	mu     sync.RWMutex
	source SeriesSource
	params Params
	cache  map[models.Key]models.Estimate
}

// New creates a projection service.
func New(source SeriesSource, params Params) *Service {
	return &Service{
		source: source,
		params: params,
		cache:  make(map[models.Key]models.Estimate),
	}
}

// Estimate computes the burn rate and ETA of key at now and caches it. The ETA
// is based on the most recent sample of the whole series.
func (s *Service) Estimate(key models.Key, now time.Time) models.Estimate {
	samples := s.source.Snapshot(key)
	est := models.Estimate{At: now, Key: key}

	if len(samples) > 0 {
		est.CurrentPct = samples[len(samples)-1].Pct
		est.Samples = len(inWindow(samples, now, s.params.Window))
		est.Rate, est.HasRate = BurnRate(samples, now, s.params)
		if est.HasRate {
			est.ETAMinutes, est.HasETA = ETA(est.CurrentPct, est.Rate, s.params)
		}
	}

	s.mu.Lock()
	s.cache[key] = est
	s.mu.Unlock()

	return est
}

// EstimateETA returns the minutes until key reaches its limit, if known.
func (s *Service) EstimateETA(key models.Key, now time.Time) (int, bool) {
	est := s.Estimate(key, now)
	return est.ETAMinutes, est.HasETA
}

// Cached returns the last estimate computed for key.
func (s *Service) Cached(key models.Key) (models.Estimate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	est, ok := s.cache[key]
	return est, ok
}
