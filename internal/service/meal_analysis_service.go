package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-meal-analyzer/internal/analyzer"
	"go-meal-analyzer/internal/cache"
	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/internal/followup"
	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/internal/observer"
	"go-meal-analyzer/internal/portion"
	"go-meal-analyzer/internal/repository"
	"go-meal-analyzer/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MealAnalysisService defines the meal photo pipeline
type MealAnalysisService interface {
	// Analyze runs detection, nutrition lookup and follow-up handling for
	// one request, or resumes a follow-up session carried by the request
	Analyze(ctx context.Context, req models.MealAnalysisRequest) (*models.MealAnalysisResponse, error)

	// CleanCache deletes every expired cache row
	CleanCache(ctx context.Context) (*models.CacheCleanResponse, error)

	// Common validation
	ValidatePhotoURL(photoURL string) error
}

// FoodDetector finds food items on fetched photo bytes
type FoodDetector interface {
	Detect(ctx context.Context, image []byte, mimeType, mealType, mealTime string) models.FoodDetectionResult
}

// DetectionCache stores detection results by image hash
type DetectionCache interface {
	Get(ctx context.Context, hash string) (*models.FoodDetectionResult, bool)
	Put(ctx context.Context, hash string, result models.FoodDetectionResult)
}

// NutritionResolver resolves and scales nutrition for a normalized item
type NutritionResolver interface {
	Lookup(ctx context.Context, item models.DetectedItem, itemID string) models.AnalyzedItem
}

// QualityAnalyzer computes local pixel hints
type QualityAnalyzer interface {
	Analyze(data []byte, contentType string) (analyzer.Hints, error)
}

// Dependencies are the collaborators of the pipeline. Quality, Publisher and
// Store are optional.
type Dependencies struct {
	Photos     repository.PhotoRepository
	Detector   FoodDetector
	Detections DetectionCache
	Resolver   NutritionResolver
	Quality    QualityAnalyzer
	Publisher  observer.Subject
	Store      cache.Store
}

// Options tune the pipeline
type Options struct {
	MaxItems   int
	BatchSize  int
	Thresholds followup.Thresholds
}

// DefaultOptions returns a cap of 15 items looked up in batches of 3
func DefaultOptions() Options {
	return Options{
		MaxItems:   15,
		BatchSize:  3,
		Thresholds: followup.DefaultThresholds(),
	}
}

// mealAnalysisService implements MealAnalysisService
type mealAnalysisService struct {
	deps   Dependencies
	opts   Options
	engine *followup.Engine
	now    func() time.Time
}

// NewMealAnalysisService creates a new meal analysis service
func NewMealAnalysisService(deps Dependencies, opts Options) MealAnalysisService {
	return newMealAnalysisService(deps, opts)
}

func newMealAnalysisService(deps Dependencies, opts Options) *mealAnalysisService {
	defaults := DefaultOptions()
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaults.MaxItems
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.Thresholds == (followup.Thresholds{}) {
		opts.Thresholds = defaults.Thresholds
	}
	s := &mealAnalysisService{deps: deps, opts: opts, now: time.Now}
	s.engine = followup.NewEngine(opts.Thresholds, renamer{resolver: deps.Resolver})
	return s
}

// Analyze runs the pipeline. Input and photo errors are returned as
// AppErrors; an empty detection is a failed response, not an error.
func (s *mealAnalysisService) Analyze(ctx context.Context, req models.MealAnalysisRequest) (resp *models.MealAnalysisResponse, err error) {
	start := s.now()
	log := logger.FromContext(ctx).WithField("user_id", req.UserID)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Meal analysis panicked")
			resp = nil
			err = apperrors.NewInternalError("meal analysis failed", fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			s.publish(ctx, observer.AnalysisEvent{
				EventType:      observer.AnalysisFailed,
				UserID:         req.UserID,
				ProcessingTime: s.now().Sub(start),
				ErrorMessage:   err.Error(),
			})
		}
	}()

	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		UserID:    req.UserID,
		Success:   true,
		Metadata:  map[string]interface{}{"resumed": req.Session != nil},
	})

	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.Session != nil {
		resp, err = s.resume(ctx, req)
	} else {
		resp, err = s.run(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	resp.CorrelationID = logger.RequestID(ctx)
	elapsed := s.now().Sub(start)
	event := observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		UserID:         req.UserID,
		ProcessingTime: elapsed,
		Success:        resp.Status != models.StatusFailed,
		Metadata: map[string]interface{}{
			"status":    string(resp.Status),
			"items":     len(resp.Items),
			"cache_hit": resp.CacheHit,
		},
	}
	if resp.Session != nil {
		event.ImageHash = resp.Session.ImageHash
	}
	if resp.Status == models.StatusFailed {
		event.EventType = observer.AnalysisFailed
		event.ErrorMessage = "no food items detected"
	}
	s.publish(ctx, event)

	log.WithFields(logrus.Fields{
		"status":      resp.Status,
		"items":       len(resp.Items),
		"followups":   len(resp.Followups),
		"cache_hit":   resp.CacheHit,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Meal analysis finished")
	return resp, nil
}

// ValidatePhotoURL validates the photo URL
func (s *mealAnalysisService) ValidatePhotoURL(photoURL string) error {
	return s.deps.Photos.ValidatePhotoURL(photoURL)
}

// CleanCache removes expired rows from the persistent cache
func (s *mealAnalysisService) CleanCache(ctx context.Context) (*models.CacheCleanResponse, error) {
	if s.deps.Store == nil {
		return &models.CacheCleanResponse{}, nil
	}
	res, err := cache.CleanExpired(ctx, s.deps.Store, s.now())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to clean cache", err)
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"image_analysis_deleted": res.ImageAnalysisDeleted,
		"nutrition_deleted":      res.NutritionDeleted,
	}).Info("Expired cache entries removed")
	return &models.CacheCleanResponse{
		ImageAnalysisDeleted: res.ImageAnalysisDeleted,
		NutritionDeleted:     res.NutritionDeleted,
	}, nil
}

func (s *mealAnalysisService) validate(req models.MealAnalysisRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return apperrors.NewMissingFieldError("user_id")
	}
	if err := s.ValidatePhotoURL(req.PhotoURL); err != nil {
		return err
	}
	for _, r := range req.FollowupResponses {
		if strings.TrimSpace(r.QuestionID) == "" {
			return apperrors.NewMissingFieldError("followup_responses.question_id")
		}
	}
	return nil
}

// run is the full pass: fetch, detect, resolve, then follow-ups.
func (s *mealAnalysisService) run(ctx context.Context, req models.MealAnalysisRequest) (*models.MealAnalysisResponse, error) {
	log := logger.FromContext(ctx)
	session := &models.AnalysisSession{State: models.StateAwaitingDetection}

	photo, err := s.deps.Photos.FetchPhoto(ctx, req.PhotoURL)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewNetworkError("failed to fetch photo", err)
	}
	hash := cache.Hash(photo.Data)
	session.ImageHash = hash
	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.PhotoFetched,
		ImageHash: hash,
		Success:   true,
		Metadata: map[string]interface{}{
			"bytes":        len(photo.Data),
			"content_type": photo.ContentType,
			"source":       photo.Source,
		},
	})

	detection, cacheHit := s.detect(ctx, req, photo.Data, photo.ContentType, hash)
	if detection.Empty() {
		if err := followup.Advance(session, models.StateFailed); err != nil {
			return nil, apperrors.NewInternalError("invalid session state", err)
		}
		session.OriginalItems = []models.AnalyzedItem{}
		session.PendingQuestions = []models.FollowupQuestion{}
		session.AppliedResponses = []models.FollowupResponse{}
		log.WithField("image_hash", hash).Warn("No food items detected")
		return &models.MealAnalysisResponse{
			Status:       models.StatusFailed,
			Items:        []models.AnalyzedItem{},
			PhotoQuality: detection.PhotoQuality,
			CacheHit:     cacheHit,
			Session:      session,
		}, nil
	}

	quality := detection.PhotoQuality
	if s.deps.Quality != nil {
		hints, err := s.deps.Quality.Analyze(photo.Data, photo.ContentType)
		if err == nil {
			quality = hints.Apply(quality)
		} else {
			log.WithError(err).Debug("Skipping local photo quality hints")
		}
	}
	session.PhotoQuality = quality

	if err := followup.Advance(session, models.StateAwaitingNutrition); err != nil {
		return nil, apperrors.NewInternalError("invalid session state", err)
	}
	items := s.resolveItems(ctx, hash, detection.Items)

	resp, err := s.settle(ctx, session, items, req.FollowupResponses, req.SkipFollowups)
	if err != nil {
		return nil, err
	}
	resp.CacheHit = cacheHit
	return resp, nil
}

// resume replays responses onto a client-held session without touching the
// photo, the detector or the providers (except to re-resolve renamed items).
func (s *mealAnalysisService) resume(ctx context.Context, req models.MealAnalysisRequest) (*models.MealAnalysisResponse, error) {
	in := req.Session
	if !followup.Resumable(in.State) {
		return nil, invalidSession(fmt.Sprintf("session in state %q cannot accept responses", in.State))
	}
	if len(in.OriginalItems) == 0 {
		return nil, invalidSession("session has no items")
	}
	for _, it := range in.OriginalItems {
		if it.ID == "" {
			return nil, invalidSession("session item is missing its id")
		}
	}

	session := &models.AnalysisSession{
		ImageHash:    in.ImageHash,
		PhotoQuality: in.PhotoQuality,
		State:        in.State,
	}
	responses := make([]models.FollowupResponse, 0, len(in.AppliedResponses)+len(req.FollowupResponses))
	responses = append(responses, in.AppliedResponses...)
	responses = append(responses, req.FollowupResponses...)

	return s.settle(ctx, session, in.OriginalItems, responses, req.SkipFollowups)
}

// settle replays responses over original, records the outcome on the
// session and picks the response status.
func (s *mealAnalysisService) settle(ctx context.Context, session *models.AnalysisSession, original []models.AnalyzedItem, responses []models.FollowupResponse, skip bool) (*models.MealAnalysisResponse, error) {
	outcome := s.engine.Replay(ctx, original, responses)

	session.OriginalItems = original
	session.AppliedResponses = outcome.Applied
	session.PendingQuestions = outcome.Pending

	var steps []models.SessionState
	if len(outcome.Applied) > 0 {
		if session.State == models.StateAwaitingNutrition {
			steps = append(steps, models.StateNeedsFollowup)
		}
		steps = append(steps, models.StateAwaitingReanalysis)
	}
	final := models.StateNeedsFollowup
	if skip || len(outcome.Pending) == 0 {
		final = models.StateComplete
	}
	steps = append(steps, final)

	for _, to := range steps {
		if session.State == to {
			continue
		}
		if err := followup.Advance(session, to); err != nil {
			return nil, apperrors.NewInternalError("invalid session state", err)
		}
	}

	resp := &models.MealAnalysisResponse{
		Status:       models.StatusComplete,
		Items:        outcome.Items,
		PhotoQuality: session.PhotoQuality,
		Session:      session,
	}
	if final == models.StateNeedsFollowup {
		resp.Status = models.StatusNeedsFollowup
		resp.Followups = outcome.Pending
		s.publish(ctx, observer.AnalysisEvent{
			EventType: observer.FollowupsGenerated,
			ImageHash: session.ImageHash,
			Success:   true,
			Metadata:  map[string]interface{}{"count": len(outcome.Pending)},
		})
	}
	return resp, nil
}

func (s *mealAnalysisService) detect(ctx context.Context, req models.MealAnalysisRequest, data []byte, contentType, hash string) (models.FoodDetectionResult, bool) {
	if cached, ok := s.deps.Detections.Get(ctx, hash); ok {
		s.publish(ctx, observer.AnalysisEvent{
			EventType: observer.DetectionCacheHit,
			ImageHash: hash,
			Success:   true,
			Metadata:  map[string]interface{}{"items": len(cached.Items)},
		})
		return *cached, true
	}

	start := s.now()
	result := s.deps.Detector.Detect(ctx, data, contentType, req.MealType, req.MealTime)
	if !result.Empty() {
		s.deps.Detections.Put(ctx, hash, result)
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.DetectionCompleted,
		ImageHash:      hash,
		ProcessingTime: s.now().Sub(start),
		Success:        !result.Empty(),
		Metadata:       map[string]interface{}{"items": len(result.Items)},
	})
	return result, false
}

// resolveItems normalizes portions and looks nutrition up in sequential
// batches. A failing lookup degrades to the fallback estimate and never
// affects its siblings.
func (s *mealAnalysisService) resolveItems(ctx context.Context, hash string, detected []models.DetectedItem) []models.AnalyzedItem {
	if len(detected) > s.opts.MaxItems {
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"detected": len(detected),
			"max":      s.opts.MaxItems,
		}).Warn("Capping detected items")
		detected = detected[:s.opts.MaxItems]
	}

	items := make([]models.AnalyzedItem, len(detected))
	for start := 0; start < len(detected); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(detected))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				items[i] = s.lookupItem(gctx, hash, i, detected[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return items
}

func (s *mealAnalysisService) lookupItem(ctx context.Context, hash string, idx int, raw models.DetectedItem) (out models.AnalyzedItem) {
	normalized, est := portion.Normalize(raw)
	id := followup.ItemID(hash, idx)

	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).WithFields(logrus.Fields{"item": raw.Name, "panic": r}).
				Error("Nutrition lookup panicked, using fallback estimate")
			out = nutrition.Scale(normalized, id, nutrition.Estimate(normalized.Category, nutrition.Queries(normalized)))
		}
		out.PortionEstimate = raw.Portion.EstimateType
		s.publish(ctx, observer.AnalysisEvent{
			EventType: observer.NutritionResolved,
			ImageHash: hash,
			Success:   true,
			Metadata: map[string]interface{}{
				"item_id":        id,
				"item":           out.Name,
				"source":         string(out.NutritionSource),
				"portion_method": string(est.Method),
			},
		})
	}()

	return s.deps.Resolver.Lookup(ctx, normalized, id)
}

func (s *mealAnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.deps.Publisher == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = logger.RequestID(ctx)
	}
	s.deps.Publisher.NotifyObservers(ctx, event)
}

func invalidSession(message string) error {
	return apperrors.NewValidationError(message, nil).WithReason(apperrors.ReasonInvalidSession)
}

// renamer re-resolves an item under the name the user typed, keeping its
// gram weight and portion confidence.
type renamer struct {
	resolver NutritionResolver
}

func (r renamer) Rename(ctx context.Context, item models.AnalyzedItem, name string) models.AnalyzedItem {
	if r.resolver == nil {
		return item
	}
	detected := models.DetectedItem{
		Name:     name,
		Synonyms: []string{},
		Category: item.Category,
		Portion: models.Portion{
			EstimateType: models.EstimateWeightG,
			Value:        models.Float(item.EstimatedGrams),
			Unit:         models.UnitGram,
			Confidence:   item.Portion.Confidence,
		},
		Confidence: followup.ConfirmedDetectionConfidence,
	}
	out := r.resolver.Lookup(ctx, detected, item.ID)
	out.PortionEstimate = item.PortionEstimate
	return out
}
