package workshop

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
	apperrors "github.com/kuiporro/pgf-fleet-workshop/pkg/util"
)

// Source names used in the degraded-result flag.
const (
	sourceStatusEvents = "status_events"
	sourcePauses       = "pauses"
	sourceComments     = "comments"
	sourceEvidence     = "evidence"
)

// kindPriority breaks occurred-at ties so same-instant events render
// deterministically.
var kindPriority = map[domain.TimelineKind]int{
	domain.TimelineKindCreation:     0,
	domain.TimelineKindStatusChange: 1,
	domain.TimelineKindPause:        2,
	domain.TimelineKindResume:       2,
	domain.TimelineKindEvidence:     3,
	domain.TimelineKindComment:      4,
	domain.TimelineKindChecklist:    5,
}

// TimelineAggregator reconstructs a single causally-ordered timeline from
// the four independently written event sources. Read-only; safe to call
// concurrently with writers; reflects whatever the writers have durably
// committed at call time.
type TimelineAggregator struct {
	orders        repository.WorkOrderRepository
	statusLog     repository.StatusEventRepository
	pauses        repository.PauseRepository
	comments      repository.CommentRepository
	evidence      repository.EvidenceRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	sourceTimeout time.Duration
	logger        *zap.Logger
}

// TimelineDependencies bundles collaborators.
type TimelineDependencies struct {
	WorkOrderRepo   repository.WorkOrderRepository
	StatusEventRepo repository.StatusEventRepository
	PauseRepo       repository.PauseRepository
	CommentRepo     repository.CommentRepository
	EvidenceRepo    repository.EvidenceRepository
	Cache           *redis.Client
	CacheTTL        time.Duration
	SourceTimeout   time.Duration
	Logger          *zap.Logger
}

// NewTimelineAggregator constructs the aggregator.
func NewTimelineAggregator(deps TimelineDependencies) *TimelineAggregator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.SourceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TimelineAggregator{
		orders:        deps.WorkOrderRepo,
		statusLog:     deps.StatusEventRepo,
		pauses:        deps.PauseRepo,
		comments:      deps.CommentRepo,
		evidence:      deps.EvidenceRepo,
		cache:         deps.Cache,
		cacheTTL:      deps.CacheTTL,
		sourceTimeout: timeout,
		logger:        logger,
	}
}

// Build aggregates the timeline for one work order.
//
// The four source reads run concurrently; a failing source degrades the
// result (Partial=true, source named in MissingSources) instead of failing
// the whole view. Only a complete result is ever cached.
func (a *TimelineAggregator) Build(ctx context.Context, workOrderID string) (*domain.Timeline, error) {
	if cached := a.fromCache(ctx, workOrderID); cached != nil {
		return cached, nil
	}

	order, err := a.orders.GetByID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": workOrderID})
		}
		return nil, apperrors.MapError(err)
	}

	var (
		statusEvents []domain.StatusChangeEvent
		pauseRecords []domain.PauseRecord
		commentRecs  []domain.CommentRecord
		evidenceRecs []domain.EvidenceRecord
		failuresMu   sync.Mutex
		failures     []string
	)

	fetchCtx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	fetch := func(source string, load func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := load(); err != nil {
				a.logger.Warn("timeline source unavailable",
					zap.String("work_order_id", workOrderID),
					zap.String("source", source),
					zap.Error(err),
				)
				failuresMu.Lock()
				failures = append(failures, source)
				failuresMu.Unlock()
			}
		}()
	}

	fetch(sourceStatusEvents, func() error {
		var err error
		statusEvents, err = a.statusLog.ListByWorkOrder(fetchCtx, workOrderID)
		return err
	})
	fetch(sourcePauses, func() error {
		var err error
		pauseRecords, err = a.pauses.ListByWorkOrder(fetchCtx, workOrderID)
		return err
	})
	fetch(sourceComments, func() error {
		var err error
		commentRecs, err = a.comments.ListByWorkOrder(fetchCtx, workOrderID)
		return err
	})
	fetch(sourceEvidence, func() error {
		var err error
		evidenceRecs, err = a.evidence.ListByWorkOrder(fetchCtx, workOrderID)
		return err
	})
	wg.Wait()

	sort.Strings(failures)
	timeline := &domain.Timeline{
		WorkOrderID:    workOrderID,
		Entries:        MergeTimeline(order, statusEvents, pauseRecords, commentRecs, evidenceRecs),
		Partial:        len(failures) > 0,
		MissingSources: failures,
	}
	timeline.Actors = actorRoster(timeline.Entries)

	if !timeline.Partial {
		a.toCache(ctx, timeline)
	}
	return timeline, nil
}

// InvalidateCache drops the cached timeline for a work order. Called on
// every accepted mutation.
func (a *TimelineAggregator) InvalidateCache(ctx context.Context, workOrderID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Del(ctx, timelineCacheKey(workOrderID)).Err(); err != nil {
		a.logger.Warn("timeline cache invalidation failed",
			zap.String("work_order_id", workOrderID), zap.Error(err))
	}
}

// MergeTimeline is a pure function of the source slices: it normalizes each
// record into the common entry shape and sorts ascending by occurred-at,
// ties broken by kind priority. Inputs are never mutated.
func MergeTimeline(
	order *domain.WorkOrder,
	statusEvents []domain.StatusChangeEvent,
	pauses []domain.PauseRecord,
	comments []domain.CommentRecord,
	evidence []domain.EvidenceRecord,
) []domain.TimelineEntry {
	entries := make([]domain.TimelineEntry, 0,
		1+len(statusEvents)+2*len(pauses)+len(comments)+len(evidence))

	entries = append(entries, domain.TimelineEntry{
		Kind:       domain.TimelineKindCreation,
		OccurredAt: order.OpenedAt,
		Actor:      domain.Actor{IdentityID: order.OpenedBy},
		Detail: map[string]any{
			"vehicle_ref": order.VehicleRef,
			"priority":    order.Priority,
		},
	})

	for _, event := range statusEvents {
		detail := map[string]any{
			"from_status": event.FromStatus,
			"to_status":   event.ToStatus,
		}
		if event.Reason != "" {
			detail["reason"] = event.Reason
		}
		entries = append(entries, domain.TimelineEntry{
			Kind:       domain.TimelineKindStatusChange,
			OccurredAt: event.OccurredAt,
			Actor:      event.Actor,
			Detail:     detail,
		})
	}

	for _, pause := range pauses {
		entries = append(entries, domain.TimelineEntry{
			Kind:       domain.TimelineKindPause,
			OccurredAt: pause.StartedAt,
			Actor:      pause.StartedBy,
			Detail: map[string]any{
				"pause_id":      pause.ID,
				"paused_status": pause.PausedStatus,
				"reason":        pause.Reason,
			},
		})
		if pause.EndedAt != nil {
			resumeActor := pause.StartedBy
			if pause.EndedBy != nil {
				resumeActor = *pause.EndedBy
			}
			entries = append(entries, domain.TimelineEntry{
				Kind:       domain.TimelineKindResume,
				OccurredAt: *pause.EndedAt,
				Actor:      resumeActor,
				Detail: map[string]any{
					"pause_id":         pause.ID,
					"duration_minutes": pause.DurationMinutes(),
				},
			})
		}
	}

	for _, comment := range comments {
		entries = append(entries, domain.TimelineEntry{
			Kind:       domain.TimelineKindComment,
			OccurredAt: comment.OccurredAt,
			Actor:      comment.Actor,
			Detail:     map[string]any{"body": comment.Body},
		})
	}

	for _, item := range evidence {
		entries = append(entries, domain.TimelineEntry{
			Kind:       domain.TimelineKindEvidence,
			OccurredAt: item.OccurredAt,
			Actor:      item.Actor,
			Detail: map[string]any{
				"file_name":   item.FileName,
				"mime_type":   item.MimeType,
				"storage_key": item.StorageKey,
			},
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].OccurredAt.Before(entries[j].OccurredAt)
		}
		return kindPriority[entries[i].Kind] < kindPriority[entries[j].Kind]
	})
	return entries
}

// actorRoster deduplicates actors by identity, keeping the most recently
// observed role label for each.
func actorRoster(entries []domain.TimelineEntry) []domain.Actor {
	latest := make(map[string]domain.Actor)
	var order []string
	for _, entry := range entries {
		if entry.Actor.IdentityID == "" {
			continue
		}
		if _, seen := latest[entry.Actor.IdentityID]; !seen {
			order = append(order, entry.Actor.IdentityID)
		}
		latest[entry.Actor.IdentityID] = entry.Actor
	}
	roster := make([]domain.Actor, 0, len(order))
	for _, id := range order {
		roster = append(roster, latest[id])
	}
	return roster
}

func timelineCacheKey(workOrderID string) string {
	return "timeline:" + workOrderID
}

func (a *TimelineAggregator) fromCache(ctx context.Context, workOrderID string) *domain.Timeline {
	if a.cache == nil || a.cacheTTL <= 0 {
		return nil
	}
	raw, err := a.cache.Get(ctx, timelineCacheKey(workOrderID)).Bytes()
	if err != nil {
		return nil
	}
	var timeline domain.Timeline
	if err := json.Unmarshal(raw, &timeline); err != nil {
		return nil
	}
	return &timeline
}

func (a *TimelineAggregator) toCache(ctx context.Context, timeline *domain.Timeline) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(timeline)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, timelineCacheKey(timeline.WorkOrderID), raw, a.cacheTTL).Err(); err != nil {
		a.logger.Warn("timeline cache write failed",
			zap.String("work_order_id", timeline.WorkOrderID), zap.Error(err))
	}
}
