package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shipscope/shipscope/internal/broker/messages"
	"github.com/shipscope/shipscope/internal/cache"
	"github.com/shipscope/shipscope/internal/carriers"
	"github.com/shipscope/shipscope/internal/integrations/carrier"
	"github.com/shipscope/shipscope/internal/models"
	"github.com/shipscope/shipscope/internal/trackerr"
)

type Broadcaster interface {
	BroadcastTrackingUpdate(res models.TrackingResult)
}

type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Archive interface {
	RecordLookup(ctx context.Context, res models.TrackingResult, checkedAt time.Time) error
	ListRecentLookups(ctx context.Context, limit int) ([]*models.TrackingResult, error)
}

// Service runs the lookup pipeline: detect carrier, consult the cache,
// dispatch to the carrier strategy on a miss, store and fan out the fresh
// result. Cache, archive and producer are best-effort: their failures are
// logged, never surfaced to the caller.
type Service struct {
	fallback   carrier.Client
	strategies map[string]carrier.Client

	cache    cache.BytesCache
	cacheTTL time.Duration

	hub      Broadcaster
	producer Publisher
	archive  Archive
	originID string

	now func() time.Time
}

func New(fallback carrier.Client, c cache.BytesCache, ttl time.Duration, hub Broadcaster) *Service {
	return &Service{
		fallback:   fallback,
		strategies: map[string]carrier.Client{},
		cache:      c,
		cacheTTL:   ttl,
		hub:        hub,
		now:        time.Now,
	}
}

// WithStrategy registers a dedicated strategy for one carrier tag; every
// other tag falls through to the generic client.
func (s *Service) WithStrategy(carrierTag string, c carrier.Client) *Service {
	s.strategies[carrierTag] = c
	return s
}

// WithProducer wires the broker fan-out. originID identifies this instance
// in published messages so it can skip them on the consuming side.
func (s *Service) WithProducer(p Publisher, originID string) *Service {
	s.producer = p
	s.originID = originID
	return s
}

func (s *Service) WithArchive(a Archive) *Service {
	s.archive = a
	return s
}

func (s *Service) Track(ctx context.Context, trackingNumber string) (models.TrackingResult, error) {
	if trackingNumber == "" {
		return models.TrackingResult{}, trackerr.New(trackerr.KindValidation, "trackingNumber is required")
	}

	carrierTag := carriers.Detect(trackingNumber)
	if carrierTag == models.CarrierUnknown {
		return models.TrackingResult{}, trackerr.Newf(trackerr.KindCarrierDetection,
			"could not detect carrier for %q", trackingNumber)
	}

	key := cacheKey(carrierTag, trackingNumber)
	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var res models.TrackingResult
			if json.Unmarshal(b, &res) == nil {
				return res, nil
			}
		}
	}

	client := s.fallback
	if c, ok := s.strategies[carrierTag]; ok {
		client = c
	}

	res, err := client.GetTracking(ctx, carrierTag, trackingNumber)
	if err != nil {
		// No retry, no partial caching: the failure goes to the caller
		// unchanged.
		return models.TrackingResult{}, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		b, _ := json.Marshal(res)
		if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
			slog.Warn("cache tracking result", "key", key, "error", err.Error())
		}
	}

	now := s.now().UTC()
	if s.archive != nil {
		if err := s.archive.RecordLookup(ctx, res, now); err != nil {
			slog.Warn("archive lookup", "trackingNumber", trackingNumber, "error", err.Error())
		}
	}

	if s.hub != nil {
		s.hub.BroadcastTrackingUpdate(res)
	}

	if s.producer != nil {
		msg := messages.TrackingUpdated{
			OriginID:       s.originID,
			TrackingNumber: trackingNumber,
			Carrier:        carrierTag,
			CheckedAt:      now,
			Result:         res,
		}
		b, _ := json.Marshal(msg)
		if err := s.producer.Publish(ctx, []byte(key), b); err != nil {
			slog.Warn("publish tracking update", "key", key, "error", err.Error())
		}
	}

	return res, nil
}

// History lists recently archived lookups; empty when no archive is wired.
func (s *Service) History(ctx context.Context, limit int) ([]*models.TrackingResult, error) {
	if s.archive == nil {
		return []*models.TrackingResult{}, nil
	}
	return s.archive.ListRecentLookups(ctx, limit)
}

// ApplyRemoteUpdate re-broadcasts an update consumed from the broker,
// skipping messages this instance published itself.
func (s *Service) ApplyRemoteUpdate(msg messages.TrackingUpdated) {
	if s.originID != "" && msg.OriginID == s.originID {
		return
	}
	if s.hub != nil {
		s.hub.BroadcastTrackingUpdate(msg.Result)
	}
}

func cacheKey(carrierTag, trackingNumber string) string {
	return strings.ToLower(carrierTag) + ":" + trackingNumber
}
