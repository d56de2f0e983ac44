package announce

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/clock"
	"github.com/nooogy1/FantasyPetDiscord/internal/config"
	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/notify"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/metrics"
	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/state"
)

// ErrDrainInProgress reports a drain tick that fired while the previous
// drain was still running. The tick is skipped, not queued.
var ErrDrainInProgress = errors.New("drain_in_progress")

const drainCycleTimeout = 30 * time.Second

// Drainer pops eligible queue items lane by lane, re-validates each
// against the live pet row and emits the survivors. Lanes are gated
// independently: one lane waiting out its spacing interval never blocks
// another.
type Drainer struct {
	db       *gorm.DB
	log      *zap.Logger
	queue    *Queue
	pets     petdomain.Repository
	leagues  leaguedomain.Service
	store    *state.Store
	notifier notify.Notifier
	clock    clock.Clock
	cfg      config.Config
	metrics  *metrics.BotMetrics

	busy atomic.Bool
}

type DrainerParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Queue    *Queue
	Pets     petdomain.Repository
	Leagues  leaguedomain.Service
	Store    *state.Store
	Notifier notify.Notifier
	Clock    clock.Clock
	Config   config.Config
}

func NewDrainer(p DrainerParams) *Drainer {
	return &Drainer{
		db:       p.DB,
		log:      p.Log.Named("announce.drain"),
		queue:    p.Queue,
		pets:     p.Pets,
		leagues:  p.Leagues,
		store:    p.Store,
		notifier: p.Notifier,
		clock:    p.Clock,
		cfg:      p.Config,
		metrics:  metrics.Bot(),
	}
}

// RunForever drives drain cycles on the configured interval after a
// short startup delay.
func (d *Drainer) RunForever(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(d.cfg.StartupDelay):
	}

	ticker := time.NewTicker(d.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		if err := d.RunOnce(ctx); err != nil && !errors.Is(err, ErrDrainInProgress) {
			d.log.Warn("drain cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce drains every eligible lane once. Safe against overlapping
// invocations: a second call while one runs is skipped.
func (d *Drainer) RunOnce(ctx context.Context) error {
	if !d.busy.CompareAndSwap(false, true) {
		return ErrDrainInProgress
	}
	defer d.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, drainCycleTimeout)
	defer cancel()

	lanes, err := d.queue.PendingLanes(ctx)
	if err != nil {
		return err
	}
	if len(lanes) == 0 {
		return d.reportBacklog(ctx)
	}

	now := d.clock.Now().In(d.cfg.BroadcastLocation())
	if !d.withinWindow(now) {
		for range lanes {
			d.metrics.IncDrainSkip("window")
		}
		d.log.Debug("outside broadcast window", zap.Time("now", now))
		return d.reportBacklog(ctx)
	}

	for _, lane := range lanes {
		if err := d.drainLane(ctx, lane, now); err != nil {
			// One lane's trouble must not starve the others.
			d.log.Warn("lane drain failed",
				zap.String("lane", lane.Key()),
				zap.Error(err),
			)
		}
	}
	return d.reportBacklog(ctx)
}

// withinWindow reports whether announcements may be emitted at the
// given local time. Equal start and end hours disable gating; an end
// hour before the start wraps past midnight.
func (d *Drainer) withinWindow(now time.Time) bool {
	start := d.cfg.BroadcastStartHour
	end := d.cfg.BroadcastEndHour
	if start == end {
		return true
	}
	hour := now.Hour()
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func (d *Drainer) drainLane(ctx context.Context, lane Lane, now time.Time) error {
	if mark, ok := d.store.LaneMark(lane.Key()); ok {
		if elapsed := now.Sub(mark); elapsed < d.cfg.LaneSpacing {
			d.metrics.IncDrainSkip("spacing")
			return nil
		}
	}

	// Stale items are consumed silently until one survives
	// re-validation or the attempt budget runs out.
	for attempt := 0; attempt < d.cfg.MaxDrainAttempts; attempt++ {
		item, err := d.queue.NextPending(ctx, lane)
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}

		pet, err := d.pets.FindByCode(ctx, d.db, item.PetCode)
		if err != nil {
			return err
		}
		if reason := d.revalidate(item, pet, now); reason != "" {
			if err := d.queue.ConsumeStale(ctx, item.ID, now, reason); err != nil {
				return err
			}
			d.metrics.IncStaleConsumed(item.Kind)
			d.log.Info("stale item consumed",
				zap.String("lane", lane.Key()),
				zap.String("pet_code", item.PetCode),
				zap.String("reason", reason),
			)
			continue
		}

		return d.emit(ctx, lane, item, pet, now)
	}
	return nil
}

// revalidate re-checks an item against the live pet row immediately
// before emission. An empty return means the item is still worth
// announcing; anything else is the reason it is quietly consumed.
func (d *Drainer) revalidate(item *Item, pet *petdomain.Pet, now time.Time) string {
	if pet == nil {
		return "pet_vanished"
	}
	switch item.Kind {
	case KindNewPet:
		if !pet.IsAvailable() {
			return "no_longer_available"
		}
		arrival := pet.FirstSeenAt
		if pet.BroughtInAt != nil {
			arrival = *pet.BroughtInAt
		}
		if now.Sub(arrival) > d.cfg.FreshnessWindow {
			return "no_longer_fresh"
		}
	case KindCompletedPet:
		if !pet.IsAvailable() {
			return "no_longer_available"
		}
		if !pet.IsComplete(d.cfg.PhotoSentinelURL) {
			return "profile_incomplete"
		}
	case KindAdoption:
		if !pet.IsRemoved() {
			return "not_removed"
		}
		if pet.AdoptedAnnounced {
			return "already_announced"
		}
	default:
		return "unknown_kind"
	}
	return ""
}

func (d *Drainer) emit(ctx context.Context, lane Lane, item *Item, pet *petdomain.Pet, now time.Time) error {
	target, err := d.resolveTarget(ctx, item)
	if err != nil {
		return err
	}

	content := composeMessage(item, pet)
	if err := d.notifier.Send(ctx, target, content); err != nil {
		// Leave the item pending; the next cycle retries delivery.
		if recordErr := d.queue.RecordFailure(ctx, item.ID, err); recordErr != nil {
			d.log.Error("record delivery failure", zap.Error(recordErr))
		}
		return err
	}

	if err := d.queue.MarkPosted(ctx, item.ID, now); err != nil {
		return err
	}
	if err := d.pets.MarkAnnounced(ctx, d.db, item.PetCode, announcedKind(item.Kind)); err != nil {
		return err
	}
	if err := d.store.RecordLaneMark(ctx, lane.Key(), now); err != nil {
		return err
	}

	d.metrics.IncAnnouncement(item.Kind)
	d.log.Info("announcement posted",
		zap.String("lane", lane.Key()),
		zap.String("pet_code", item.PetCode),
	)
	return nil
}

// resolveTarget maps an item to its webhook. Adoption items use the
// global adoption channel; league-scoped items use their league's
// webhook.
func (d *Drainer) resolveTarget(ctx context.Context, item *Item) (notify.Target, error) {
	if item.Kind == KindAdoption {
		return notify.Target{
			ChannelID:  d.cfg.AdoptionChannelID,
			WebhookURL: d.cfg.AdoptionWebhookURL,
		}, nil
	}
	if item.LeagueID == nil {
		return notify.Target{}, notify.ErrMissingWebhook
	}
	league, err := d.leagues.GetByID(ctx, *item.LeagueID)
	if err != nil {
		return notify.Target{}, err
	}
	return notify.Target{
		ChannelID:  league.ChannelID,
		WebhookURL: league.WebhookURL,
	}, nil
}

func (d *Drainer) reportBacklog(ctx context.Context) error {
	counts, err := d.queue.PendingCounts(ctx)
	if err != nil {
		return err
	}
	for kind, total := range counts {
		d.metrics.SetQueueBacklog(kind, int(total))
	}
	return nil
}

// announcedKind maps a queue kind to the pet flag it consumes.
func announcedKind(kind string) string {
	if kind == KindAdoption {
		return petdomain.AnnouncedAdopted
	}
	return petdomain.AnnouncedAvailable
}
