// Package checker drives the bot's poll cycle: list the shelter feed,
// diff it against the last snapshot, award points for adoptions and
// stage announcements for the drainer.
package checker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/announce"
	"github.com/nooogy1/FantasyPetDiscord/internal/config"
	"github.com/nooogy1/FantasyPetDiscord/internal/diff"
	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/metrics"
	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/photo"
	scoredomain "github.com/nooogy1/FantasyPetDiscord/internal/score/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/state"
)

// ErrCycleInProgress reports a check requested while one is already
// running. Callers treat it as "try again later", not a failure.
var ErrCycleInProgress = errors.New("check_cycle_in_progress")

const checkCycleTimeout = 2 * time.Minute

// ChangeSummary reports what one check cycle found and did.
type ChangeSummary struct {
	RunID         string `json:"run_id"`
	FirstRun      bool   `json:"first_run"`
	PetsTotal     int    `json:"pets_total"`
	NewlySeen     int    `json:"newly_seen"`
	NewlyComplete int    `json:"newly_complete"`
	Removed       int    `json:"removed"`
	Adoptions     int    `json:"adoptions"`
	AwardFailures int    `json:"award_failures"`
	PointsAwarded int64  `json:"points_awarded"`
	Enqueued      int    `json:"enqueued"`
}

// Checker owns the check cycle. One instance runs per process; RunCycle
// rejects overlapping invocations instead of queueing them.
type Checker struct {
	db      *gorm.DB
	log     *zap.Logger
	pets    petdomain.Repository
	leagues leaguedomain.Service
	score   scoredomain.Service
	queue   *announce.Queue
	store   *state.Store
	photos  *photo.Prefetcher
	cfg     config.Config
	metrics *metrics.BotMetrics

	busy atomic.Bool
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Pets    petdomain.Repository
	Leagues leaguedomain.Service
	Score   scoredomain.Service
	Queue   *announce.Queue
	Store   *state.Store
	Photos  *photo.Prefetcher
	Config  config.Config
}

func NewChecker(p Params) *Checker {
	return &Checker{
		db:      p.DB,
		log:     p.Log.Named("checker"),
		pets:    p.Pets,
		leagues: p.Leagues,
		score:   p.Score,
		queue:   p.Queue,
		store:   p.Store,
		photos:  p.Photos,
		cfg:     p.Config,
		metrics: metrics.Bot(),
	}
}

// Busy reports whether a check cycle is currently running.
func (c *Checker) Busy() bool { return c.busy.Load() }

// RunCycle executes one full check cycle and reports what changed.
func (c *Checker) RunCycle(ctx context.Context) (ChangeSummary, error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.metrics.ObserveCheckCycle("skipped", 0)
		return ChangeSummary{}, ErrCycleInProgress
	}
	defer c.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, checkCycleTimeout)
	defer cancel()

	start := time.Now()
	summary := ChangeSummary{RunID: uuid.NewString()}
	log := c.log.With(zap.String("run_id", summary.RunID))

	pets, err := c.pets.ListAll(ctx, c.db)
	if err != nil {
		c.metrics.ObserveCheckCycle("failed", time.Since(start))
		return summary, err
	}
	curr := make([]state.PetRecord, 0, len(pets))
	for _, pet := range pets {
		curr = append(curr, state.FromPet(pet))
	}
	summary.PetsTotal = len(curr)

	snap := c.store.View()
	if snap.IsFirstRun() {
		// Seed the baseline without classifying: everything present on
		// the very first check is old news, not an announcement.
		summary.FirstRun = true
		if err := c.store.ReplacePopulation(ctx, curr, state.Counters{TotalChecks: 1}); err != nil {
			c.metrics.ObserveCheckCycle("failed", time.Since(start))
			return summary, err
		}
		log.Info("population baseline seeded", zap.Int("pets", len(curr)))
		c.metrics.ObserveCheckCycle("success", time.Since(start))
		return summary, nil
	}

	changes := diff.Changes(snap.Pets, curr, c.cfg.PhotoSentinelURL)
	summary.NewlySeen = len(changes.NewlySeen)
	summary.NewlyComplete = len(changes.NewlyComplete)
	summary.Removed = len(changes.Removed)

	carry := c.processRemovals(ctx, log, snap.Pets, changes.Removed, &summary)

	if err := c.enqueueArrivals(ctx, log, changes, &summary); err != nil {
		c.metrics.ObserveCheckCycle("failed", time.Since(start))
		return summary, err
	}

	next := make([]state.PetRecord, 0, len(curr))
	for _, rec := range curr {
		if prev, ok := carry[rec.Code]; ok {
			// Award transaction rolled back: keep the pre-removal
			// record so the next cycle classifies the pet again.
			next = append(next, prev)
			continue
		}
		next = append(next, rec)
	}
	delta := state.Counters{
		TotalChecks:        1,
		TotalNewPets:       int64(summary.NewlySeen),
		TotalAdoptions:     int64(summary.Adoptions),
		TotalPointsAwarded: summary.PointsAwarded,
	}
	if err := c.store.ReplacePopulation(ctx, next, delta); err != nil {
		c.metrics.ObserveCheckCycle("failed", time.Since(start))
		return summary, err
	}

	c.warmPhotos(ctx, changes)

	c.metrics.ObserveCheckCycle("success", time.Since(start))
	c.metrics.AddPetsSeen(summary.NewlySeen)
	c.metrics.AddAdoptions(summary.Adoptions)
	c.metrics.AddPointsAwarded(summary.PointsAwarded)

	if summary.NewlySeen+summary.NewlyComplete+summary.Removed > 0 {
		log.Info("check cycle completed",
			zap.Int("pets_total", summary.PetsTotal),
			zap.Int("newly_seen", summary.NewlySeen),
			zap.Int("newly_complete", summary.NewlyComplete),
			zap.Int("removed", summary.Removed),
			zap.Int("adoptions", summary.Adoptions),
			zap.Int64("points_awarded", summary.PointsAwarded),
		)
	}
	return summary, nil
}

// processRemovals runs the award ledger over this cycle's removals and
// stages adoption announcements for the ones that committed. It returns
// the pre-removal records of pets whose transaction rolled back, keyed
// by pet code, so the snapshot keeps them classifiable.
func (c *Checker) processRemovals(ctx context.Context, log *zap.Logger, prev, removed []state.PetRecord, summary *ChangeSummary) map[string]state.PetRecord {
	if len(removed) == 0 {
		return nil
	}

	prevByCode := make(map[string]state.PetRecord, len(prev))
	for _, rec := range prev {
		prevByCode[rec.Code] = rec
	}

	removals := make([]scoredomain.Removal, 0, len(removed))
	for _, rec := range removed {
		removals = append(removals, scoredomain.Removal{
			PetCode: rec.Code,
			PetName: rec.Name,
			Breed:   rec.Breed,
		})
	}

	carry := make(map[string]state.PetRecord)
	for _, outcome := range c.score.ProcessRemovals(ctx, removals) {
		if outcome.Failed() {
			summary.AwardFailures++
			c.metrics.IncAwardFailure()
			log.Warn("award transaction rolled back, retrying next cycle",
				zap.String("pet_code", outcome.PetCode),
				zap.Error(outcome.Err),
			)
			if prev, ok := prevByCode[outcome.PetCode]; ok {
				carry[outcome.PetCode] = prev
			}
			continue
		}

		summary.Adoptions++
		summary.PointsAwarded += outcome.PointsTotal()

		lines := make([]announce.AwardLine, 0, len(outcome.Awards))
		for _, award := range outcome.Awards {
			lines = append(lines, announce.AwardLine{
				DisplayName: award.UserDisplayName,
				LeagueName:  award.LeagueName,
				Points:      award.Points,
			})
		}
		item := announce.NewItem{
			Kind:      announce.KindAdoption,
			PetCode:   outcome.PetCode,
			ChannelID: c.cfg.AdoptionChannelID,
			Payload:   announce.AdoptionPayload(outcome.PetName, lines),
		}
		if err := c.queue.Enqueue(ctx, item); err != nil {
			log.Error("enqueue adoption announcement",
				zap.String("pet_code", outcome.PetCode),
				zap.Error(err),
			)
			continue
		}
		summary.Enqueued++
	}
	return carry
}

// enqueueArrivals stages new-pet and completed-pet announcements on
// every league channel.
func (c *Checker) enqueueArrivals(ctx context.Context, log *zap.Logger, changes diff.Result, summary *ChangeSummary) error {
	if len(changes.NewlySeen) == 0 && len(changes.NewlyComplete) == 0 {
		return nil
	}

	leagues, err := c.leagues.List(ctx)
	if err != nil {
		return err
	}

	stage := func(kind string, records []state.PetRecord) {
		for _, rec := range records {
			for _, league := range leagues {
				if league.ChannelID == "" {
					continue
				}
				item := announce.NewItem{
					Kind:      kind,
					PetCode:   rec.Code,
					ChannelID: league.ChannelID,
					LeagueID:  &league.ID,
				}
				if err := c.queue.Enqueue(ctx, item); err != nil {
					log.Error("enqueue announcement",
						zap.String("kind", kind),
						zap.String("pet_code", rec.Code),
						zap.String("channel_id", league.ChannelID),
						zap.Error(err),
					)
					continue
				}
				summary.Enqueued++
			}
		}
	}
	stage(announce.KindNewPet, changes.NewlySeen)
	stage(announce.KindCompletedPet, changes.NewlyComplete)
	return nil
}

// warmPhotos pre-fetches this cycle's fresh photo URLs so embeds render
// quickly when the announcements drain. Best effort.
func (c *Checker) warmPhotos(ctx context.Context, changes diff.Result) {
	urls := make([]string, 0, len(changes.NewlySeen)+len(changes.NewlyComplete))
	for _, rec := range changes.NewlySeen {
		urls = append(urls, rec.PhotoURL)
	}
	for _, rec := range changes.NewlyComplete {
		urls = append(urls, rec.PhotoURL)
	}
	if len(urls) == 0 {
		return
	}
	c.photos.Warm(ctx, urls)
}
