package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/travelog-backend/internal/data/aggregates"
	"github.com/yungbote/travelog-backend/internal/data/repos"
	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/pkg/opt"
	"github.com/yungbote/travelog-backend/internal/platform/apierr"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/imagecheck"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type DeletePolicy string

const (
	// DeletePolicyStrict aborts the delete on the first storage failure and
	// leaves the record untouched.
	DeletePolicyStrict DeletePolicy = "strict"
	// DeletePolicyLenient removes the record anyway and reports the storage
	// failures afterwards.
	DeletePolicyLenient DeletePolicy = "lenient"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", DeletePolicyStrict:
		return DeletePolicyStrict, nil
	case DeletePolicyLenient:
		return p, nil
	default:
		return "", fmt.Errorf("invalid RECORD_DELETE_POLICY %q (allowed: strict, lenient)", s)
	}
}

type RecordServiceConfig struct {
	DeletePolicy      DeletePolicy
	UploadConcurrency int
	MaxImageBytes     int
}

type ImageUpload struct {
	Filename string
	Data     []byte
}

type ReviewInput struct {
	DestinationID uuid.UUID `json:"destination_id"`
	Rating        int       `json:"rating"`
	ShortText     string    `json:"short_text"`
	DetailedText  string    `json:"detailed_text"`
}

type CreateRecordInput struct {
	PlanID   uuid.UUID
	Title    string
	Content  string
	IsPublic bool
	Images   []ImageUpload
	Review   *ReviewInput
}

// UpdateRecordInput: absent Images keeps the current set, a present empty
// slice removes every image.
type UpdateRecordInput struct {
	Title    opt.Value[string]
	Content  opt.Value[string]
	IsPublic bool
	Images   opt.Value[[]ImageUpload]
	Review   *ReviewInput
}

type ReviewView struct {
	ID            uuid.UUID `json:"id"`
	DestinationID uuid.UUID `json:"destination_id"`
	Rating        int       `json:"rating"`
	ShortText     string    `json:"short_text"`
	DetailedText  string    `json:"detailed_text"`
}

type RecordView struct {
	ID        uuid.UUID   `json:"id"`
	PlanID    uuid.UUID   `json:"plan_id"`
	UserID    uuid.UUID   `json:"user_id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	IsPublic  bool        `json:"is_public"`
	CoverURL  string      `json:"cover_url,omitempty"`
	ImageURLs []string    `json:"image_urls"`
	Review    *ReviewView `json:"review,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type RecordService interface {
	Create(ctx context.Context, in CreateRecordInput) (*RecordView, error)
	Update(ctx context.Context, recordID uuid.UUID, in UpdateRecordInput) (*RecordView, error)
	Delete(ctx context.Context, recordID uuid.UUID) error

	GetByID(ctx context.Context, recordID uuid.UUID) (*RecordView, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*RecordView, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*RecordView, error)
	ListPublicByUser(ctx context.Context, userID uuid.UUID) ([]*RecordView, error)
	ListPublicByPlan(ctx context.Context, planID uuid.UUID) ([]*RecordView, error)
}

type recordService struct {
	log       *logger.Logger
	cfg       RecordServiceConfig
	tx        aggregates.TxRunner
	plans     repos.PlanRepo
	records   repos.RecordRepo
	images    repos.RecordImageRepo
	reviews   repos.ReviewRepo
	directory repos.DirectoryRepo
	store     ImageStore
	metrics   *observability.Metrics
}

func NewRecordService(
	log *logger.Logger,
	cfg RecordServiceConfig,
	tx aggregates.TxRunner,
	plans repos.PlanRepo,
	records repos.RecordRepo,
	images repos.RecordImageRepo,
	reviews repos.ReviewRepo,
	directory repos.DirectoryRepo,
	store ImageStore,
	metrics *observability.Metrics,
) RecordService {
	if cfg.DeletePolicy == "" {
		cfg.DeletePolicy = DeletePolicyStrict
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 4
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = imagecheck.DefaultMaxBytes
	}
	return &recordService{
		log:       log.With("service", "RecordService"),
		cfg:       cfg,
		tx:        tx,
		plans:     plans,
		records:   records,
		images:    images,
		reviews:   reviews,
		directory: directory,
		store:     store,
		metrics:   metrics,
	}
}

func (s *recordService) Create(ctx context.Context, in CreateRecordInput) (view *RecordView, err error) {
	const op = "record.create"
	ctx, span := observability.StartSpan(ctx, op, attribute.String("plan_id", in.PlanID.String()), attribute.Int("images", len(in.Images)))
	defer func() { observability.EndSpan(span, err) }()
	dbc := dbctx.Context{Ctx: ctx}

	plan, err := s.plans.GetByID(dbc, in.PlanID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if plan == nil {
		return nil, apierr.NotFound(op, "plan %s not found", in.PlanID)
	}
	if err := authorizeOwner(ctx, op, plan.UserID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Validation(op, "title is required")
	}
	if err := s.validateReview(dbc, op, in.Review); err != nil {
		return nil, err
	}

	urls, err := s.uploadAll(ctx, op, in.Images)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &types.TravelRecord{
		ID:        uuid.Must(uuid.NewV7()),
		PlanID:    plan.ID,
		UserID:    plan.UserID,
		Title:     title,
		Content:   in.Content,
		IsPublic:  in.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var review *types.DestinationReview
	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := s.records.Create(dbc, []*types.TravelRecord{rec}); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		imgs, err := s.insertImages(dbc, rec.ID, urls, now)
		if err != nil {
			return err
		}
		rec.Images = imgs
		review, err = s.upsertReview(dbc, rec, in.Review)
		return err
	})
	if err != nil {
		s.discardUploads(ctx, urls)
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}

	s.log.Info("Record created", "record_id", rec.ID, "plan_id", plan.ID, "images", len(urls), "review", review != nil)
	return toRecordView(rec, review), nil
}

func (s *recordService) Update(ctx context.Context, recordID uuid.UUID, in UpdateRecordInput) (view *RecordView, err error) {
	const op = "record.update"
	ctx, span := observability.StartSpan(ctx, op, attribute.String("record_id", recordID.String()))
	defer func() { observability.EndSpan(span, err) }()
	dbc := dbctx.Context{Ctx: ctx}

	rec, err := s.records.GetByID(dbc, recordID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if rec == nil {
		return nil, apierr.NotFound(op, "record %s not found", recordID)
	}
	if err := authorizeOwner(ctx, op, rec.UserID); err != nil {
		return nil, err
	}
	if title, ok := in.Title.Get(); ok && strings.TrimSpace(title) == "" {
		return nil, apierr.Validation(op, "title cannot be blank")
	}
	if err := s.validateReview(dbc, op, in.Review); err != nil {
		return nil, err
	}

	newImages, replaceImages := in.Images.Get()
	var (
		newURLs []string
		oldURLs []string
	)
	if replaceImages {
		old, err := s.images.ListByRecordIDs(dbc, []uuid.UUID{rec.ID})
		if err != nil {
			return nil, apierr.Wrap(apierr.KindInternal, op, err)
		}
		for _, img := range old {
			oldURLs = append(oldURLs, img.URL)
		}
		if newURLs, err = s.uploadAll(ctx, op, newImages); err != nil {
			return nil, err
		}
	}

	if title, ok := in.Title.Get(); ok {
		rec.Title = strings.TrimSpace(title)
	}
	if content, ok := in.Content.Get(); ok {
		rec.Content = content
	}
	rec.IsPublic = in.IsPublic
	rec.UpdatedAt = time.Now().UTC()

	var review *types.DestinationReview
	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.records.UpdateContent(dbc, rec); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if replaceImages {
			if err := s.images.FullDeleteByRecordIDs(dbc, []uuid.UUID{rec.ID}); err != nil {
				return fmt.Errorf("delete previous images: %w", err)
			}
			if _, err := s.insertImages(dbc, rec.ID, newURLs, rec.UpdatedAt); err != nil {
				return err
			}
		}
		var err error
		review, err = s.upsertReview(dbc, rec, in.Review)
		return err
	})
	if err != nil {
		s.discardUploads(ctx, newURLs)
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}

	if replaceImages {
		for _, u := range oldURLs {
			if derr := s.deleteObject(ctx, u); derr != nil {
				s.log.Warn("Previous record image not deleted from storage", "record_id", rec.ID, "url", u, "error", derr)
			}
		}
	}
	s.log.Info("Record updated", "record_id", rec.ID, "images_replaced", replaceImages)

	views, err := s.hydrate(dbctx.Context{Ctx: ctx}, []*types.TravelRecord{rec})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if review != nil {
		views[0].Review = toReviewView(review)
	}
	return views[0], nil
}

func (s *recordService) Delete(ctx context.Context, recordID uuid.UUID) (err error) {
	const op = "record.delete"
	ctx, span := observability.StartSpan(ctx, op, attribute.String("record_id", recordID.String()))
	defer func() { observability.EndSpan(span, err) }()
	dbc := dbctx.Context{Ctx: ctx}

	rec, err := s.records.GetByID(dbc, recordID)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}
	if rec == nil {
		return apierr.NotFound(op, "record %s not found", recordID)
	}
	if err := authorizeOwner(ctx, op, rec.UserID); err != nil {
		return err
	}
	imgs, err := s.images.ListByRecordIDs(dbc, []uuid.UUID{rec.ID})
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}

	var storageErrs []error
	for _, img := range imgs {
		derr := s.deleteObject(ctx, img.URL)
		if derr == nil {
			continue
		}
		s.log.Warn("Record image delete failed", "record_id", rec.ID, "url", img.URL, "policy", s.cfg.DeletePolicy, "error", derr)
		if s.cfg.DeletePolicy == DeletePolicyStrict {
			return apierr.Wrap(apierr.KindStorage, op, derr)
		}
		storageErrs = append(storageErrs, fmt.Errorf("%s: %w", img.URL, derr))
	}

	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.images.FullDeleteByRecordIDs(dbc, []uuid.UUID{rec.ID}); err != nil {
			return fmt.Errorf("delete images: %w", err)
		}
		if err := s.reviews.DetachRecord(dbc, []uuid.UUID{rec.ID}); err != nil {
			return fmt.Errorf("detach review: %w", err)
		}
		return s.records.FullDeleteByIDs(dbc, []uuid.UUID{rec.ID})
	})
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}
	s.log.Info("Record deleted", "record_id", rec.ID, "images", len(imgs), "storage_failures", len(storageErrs))

	if len(storageErrs) > 0 {
		return apierr.New(leftoverKind(storageErrs), op,
			fmt.Errorf("record deleted but %d image(s) remain in storage: %w", len(storageErrs), errors.Join(storageErrs...)))
	}
	return nil
}

// leftoverKind is storage_key when any failure came from a malformed URL,
// since retrying cannot fix those; otherwise storage.
func leftoverKind(errs []error) apierr.Kind {
	for _, err := range errs {
		if apierr.IsKind(err, apierr.KindStorageKey) {
			return apierr.KindStorageKey
		}
	}
	return apierr.KindStorage
}

func (s *recordService) GetByID(ctx context.Context, recordID uuid.UUID) (*RecordView, error) {
	const op = "record.get"
	dbc := dbctx.Context{Ctx: ctx}
	rec, err := s.records.GetByID(dbc, recordID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if rec == nil || (!rec.IsPublic && !isOwnerOrSystem(ctx, rec.UserID)) {
		return nil, apierr.NotFound(op, "record %s not found", recordID)
	}
	views, err := s.hydrate(dbc, []*types.TravelRecord{rec})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	return views[0], nil
}

func (s *recordService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*RecordView, error) {
	return s.listByUser(ctx, "record.list_by_user", userID, !isOwnerOrSystem(ctx, userID))
}

func (s *recordService) ListPublicByUser(ctx context.Context, userID uuid.UUID) ([]*RecordView, error) {
	return s.listByUser(ctx, "record.list_public_by_user", userID, true)
}

func (s *recordService) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*RecordView, error) {
	return s.listByPlan(ctx, "record.list_by_plan", planID, false)
}

func (s *recordService) ListPublicByPlan(ctx context.Context, planID uuid.UUID) ([]*RecordView, error) {
	return s.listByPlan(ctx, "record.list_public_by_plan", planID, true)
}

func (s *recordService) listByUser(ctx context.Context, op string, userID uuid.UUID, publicOnly bool) ([]*RecordView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	user, err := s.directory.GetUser(dbc, userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if user == nil {
		return nil, apierr.NotFound(op, "user %s not found", userID)
	}
	recs, err := s.records.ListByUser(dbc, userID, publicOnly)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	views, err := s.hydrate(dbc, recs)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	return views, nil
}

func (s *recordService) listByPlan(ctx context.Context, op string, planID uuid.UUID, publicOnly bool) ([]*RecordView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	plan, err := s.plans.GetByID(dbc, planID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if plan == nil {
		return nil, apierr.NotFound(op, "plan %s not found", planID)
	}
	if !isOwnerOrSystem(ctx, plan.UserID) {
		publicOnly = true
	}
	recs, err := s.records.ListByPlan(dbc, planID, publicOnly)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	views, err := s.hydrate(dbc, recs)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	return views, nil
}

// hydrate batch-loads images and linked reviews for recs, preserving order.
func (s *recordService) hydrate(dbc dbctx.Context, recs []*types.TravelRecord) ([]*RecordView, error) {
	out := make([]*RecordView, 0, len(recs))
	if len(recs) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	imgs, err := s.images.ListByRecordIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	imgsByRecord := make(map[uuid.UUID][]*types.RecordImage, len(recs))
	for _, img := range imgs {
		imgsByRecord[img.RecordID] = append(imgsByRecord[img.RecordID], img)
	}
	reviews, err := s.reviews.ListByRecordIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	reviewByRecord := make(map[uuid.UUID]*types.DestinationReview, len(reviews))
	for _, rv := range reviews {
		if rv.RecordID != nil {
			reviewByRecord[*rv.RecordID] = rv
		}
	}
	for _, r := range recs {
		r.Images = imgsByRecord[r.ID]
		out = append(out, toRecordView(r, reviewByRecord[r.ID]))
	}
	return out, nil
}

func (s *recordService) validateReview(dbc dbctx.Context, op string, in *ReviewInput) error {
	if in == nil {
		return nil
	}
	if !types.ValidRating(in.Rating) {
		return apierr.Validation(op, "rating %d is outside %d..%d", in.Rating, types.MinRating, types.MaxRating)
	}
	dest, err := s.directory.GetDestination(dbc, in.DestinationID)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}
	if dest == nil {
		return apierr.Validation(op, "review destination %s does not exist", in.DestinationID)
	}
	return nil
}

// upsertReview keeps at most one review per (destination, record owner),
// pointing it at rec, and leaves it as the only review linked to rec.
func (s *recordService) upsertReview(dbc dbctx.Context, rec *types.TravelRecord, in *ReviewInput) (*types.DestinationReview, error) {
	if in == nil {
		return nil, nil
	}
	row, err := s.reviews.GetByDestinationAndUser(dbc, in.DestinationID, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	if row == nil {
		row = &types.DestinationReview{
			ID:            uuid.New(),
			DestinationID: in.DestinationID,
			UserID:        rec.UserID,
		}
	}
	recordID := rec.ID
	row.Rating = in.Rating
	row.ShortText = in.ShortText
	row.DetailedText = in.DetailedText
	row.RecordID = &recordID

	saved, err := s.reviews.Upsert(dbc, row)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}
	// A record links at most one review; a previous destination's review
	// stays with the user but loses the link.
	if err := s.reviews.DetachRecordExcept(dbc, rec.ID, saved.ID); err != nil {
		return nil, fmt.Errorf("detach previous review: %w", err)
	}
	return saved, nil
}

func (s *recordService) insertImages(dbc dbctx.Context, recordID uuid.UUID, urls []string, at time.Time) ([]*types.RecordImage, error) {
	rows := make([]*types.RecordImage, 0, len(urls))
	for i, u := range urls {
		rows = append(rows, &types.RecordImage{
			ID:        uuid.New(),
			RecordID:  recordID,
			URL:       u,
			Position:  i,
			CreatedAt: at,
		})
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := s.images.Create(dbc, rows); err != nil {
		return nil, fmt.Errorf("insert images: %w", err)
	}
	return rows, nil
}

// uploadAll validates every payload, then uploads them concurrently. The
// returned URLs follow the order of imgs. On any failure the objects that did
// upload are deleted again and nothing is returned.
func (s *recordService) uploadAll(ctx context.Context, op string, imgs []ImageUpload) ([]string, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	contentTypes := make([]string, len(imgs))
	for i, img := range imgs {
		info, err := imagecheck.Inspect(img.Data, s.cfg.MaxImageBytes)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindValidation, op, fmt.Errorf("image %d (%s): %w", i, img.Filename, err))
		}
		contentTypes[i] = info.ContentType
	}

	urls := make([]string, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.UploadConcurrency)
	for i := range imgs {
		i := i
		g.Go(func() error {
			u, err := s.store.Upload(gctx, imgs[i].Data, contentTypes[i])
			s.metrics.IncStorageOp("upload", err)
			if err != nil {
				return fmt.Errorf("upload image %d (%s): %w", i, imgs[i].Filename, err)
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		uploaded := make([]string, 0, len(urls))
		for _, u := range urls {
			if u != "" {
				uploaded = append(uploaded, u)
			}
		}
		s.discardUploads(ctx, uploaded)
		return nil, apierr.Wrap(apierr.KindStorage, op, err)
	}
	return urls, nil
}

// discardUploads is the compensation for uploads whose rows never committed.
func (s *recordService) discardUploads(ctx context.Context, urls []string) {
	// The request context may already be cancelled; compensation must still run.
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		if err := s.deleteObject(ctx, u); err != nil {
			s.log.Error("Orphaned upload could not be deleted", "url", u, "error", err)
		}
	}
}

func (s *recordService) deleteObject(ctx context.Context, url string) error {
	err := s.store.Delete(ctx, url)
	s.metrics.IncStorageOp("delete", err)
	return err
}

func toRecordView(r *types.TravelRecord, review *types.DestinationReview) *RecordView {
	v := &RecordView{
		ID:        r.ID,
		PlanID:    r.PlanID,
		UserID:    r.UserID,
		Title:     r.Title,
		Content:   r.Content,
		IsPublic:  r.IsPublic,
		CoverURL:  r.CoverURL(),
		ImageURLs: make([]string, 0, len(r.Images)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, img := range r.Images {
		v.ImageURLs = append(v.ImageURLs, img.URL)
	}
	if review != nil {
		v.Review = toReviewView(review)
	}
	return v
}

func toReviewView(r *types.DestinationReview) *ReviewView {
	return &ReviewView{
		ID:            r.ID,
		DestinationID: r.DestinationID,
		Rating:        r.Rating,
		ShortText:     r.ShortText,
		DetailedText:  r.DetailedText,
	}
}
