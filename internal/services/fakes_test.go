package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
	"github.com/yungbote/travelog-backend/internal/platform/weather"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// memDB backs every repo fake with one set of maps so services see a
// consistent world. It does not roll back on transaction failure.
type memDB struct {
	mu sync.Mutex

	users        map[uuid.UUID]*types.User
	destinations map[uuid.UUID]*types.Destination
	places       map[uuid.UUID]*types.Place
	plans        map[uuid.UUID]*types.TravelPlan
	visits       map[uuid.UUID]*types.PlaceVisit
	records      map[uuid.UUID]*types.TravelRecord
	images       map[uuid.UUID]*types.RecordImage
	reviews      map[uuid.UUID]*types.DestinationReview

	failRecordCreate  error
	failImageCreate   error
	failStatusUpdates map[uuid.UUID]error
}

func newMemDB() *memDB {
	return &memDB{
		users:             map[uuid.UUID]*types.User{},
		destinations:      map[uuid.UUID]*types.Destination{},
		places:            map[uuid.UUID]*types.Place{},
		plans:             map[uuid.UUID]*types.TravelPlan{},
		visits:            map[uuid.UUID]*types.PlaceVisit{},
		records:           map[uuid.UUID]*types.TravelRecord{},
		images:            map[uuid.UUID]*types.RecordImage{},
		reviews:           map[uuid.UUID]*types.DestinationReview{},
		failStatusUpdates: map[uuid.UUID]error{},
	}
}

func (m *memDB) addUser() *types.User {
	u := &types.User{ID: uuid.New(), DisplayName: "traveler"}
	m.users[u.ID] = u
	return u
}

func (m *memDB) addDestination(name string) *types.Destination {
	d := &types.Destination{ID: uuid.New(), Name: name, Address: name + " address"}
	m.destinations[d.ID] = d
	return d
}

func (m *memDB) addPlace(name, x, y string) *types.Place {
	p := &types.Place{ID: uuid.New(), Name: name, Address: name + " street", XCoord: x, YCoord: y, Category: "sight"}
	m.places[p.ID] = p
	return p
}

func (m *memDB) addPlan(userID, destID uuid.UUID, start, end string, status types.PlanStatus) *types.TravelPlan {
	s, _ := types.ParseDate(start)
	e, _ := types.ParseDate(end)
	p := &types.TravelPlan{
		ID:            uuid.Must(uuid.NewV7()),
		UserID:        userID,
		DestinationID: destID,
		Name:          "trip",
		StartDate:     s,
		EndDate:       e,
		Status:        status,
	}
	m.plans[p.ID] = p
	return p
}

func (m *memDB) reviewsFor(destID, userID uuid.UUID) []*types.DestinationReview {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.DestinationReview
	for _, r := range m.reviews {
		if r.DestinationID == destID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// plans

type memPlanRepo struct{ db *memDB }

func (r memPlanRepo) Create(_ dbctx.Context, rows []*types.TravelPlan) ([]*types.TravelPlan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range rows {
		cp := *p
		r.db.plans[p.ID] = &cp
	}
	return rows, nil
}

func (r memPlanRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.TravelPlan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r memPlanRepo) ListByUser(_ dbctx.Context, userID uuid.UUID) ([]*types.TravelPlan, error) {
	out := r.filter(func(p *types.TravelPlan) bool { return p.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return types.DateBefore(out[j].StartDate, out[i].StartDate) })
	return out, nil
}

func (r memPlanRepo) ListStartingOn(_ dbctx.Context, day datatypes.Date) ([]*types.TravelPlan, error) {
	return r.filter(func(p *types.TravelPlan) bool {
		return types.SameDay(p.StartDate, day) && p.Status != types.PlanStatusInProgress
	}), nil
}

func (r memPlanRepo) ListEndingOn(_ dbctx.Context, day datatypes.Date) ([]*types.TravelPlan, error) {
	return r.filter(func(p *types.TravelPlan) bool {
		return types.SameDay(p.EndDate, day) && p.Status != types.PlanStatusCompleted
	}), nil
}

func (r memPlanRepo) UpdateStatus(_ dbctx.Context, id uuid.UUID, from, to types.PlanStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failStatusUpdates[id]; err != nil {
		return false, err
	}
	p, ok := r.db.plans[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (r memPlanRepo) FullDeleteByIDs(_ dbctx.Context, ids []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range ids {
		delete(r.db.plans, id)
	}
	return nil
}

func (r memPlanRepo) filter(keep func(*types.TravelPlan) bool) []*types.TravelPlan {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*types.TravelPlan
	for _, p := range r.db.plans {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

type memVisitRepo struct{ db *memDB }

func (r memVisitRepo) Create(_ dbctx.Context, rows []*types.PlaceVisit) ([]*types.PlaceVisit, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, v := range rows {
		cp := *v
		r.db.visits[v.ID] = &cp
	}
	return rows, nil
}

func (r memVisitRepo) ListByPlanID(_ dbctx.Context, planID uuid.UUID) ([]*types.PlaceVisit, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*types.PlaceVisit
	for _, v := range r.db.visits {
		if v.PlanID == planID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r memVisitRepo) FullDeleteByPlanIDs(_ dbctx.Context, planIDs []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, v := range r.db.visits {
		for _, pid := range planIDs {
			if v.PlanID == pid {
				delete(r.db.visits, id)
			}
		}
	}
	return nil
}

// records

type memRecordRepo struct{ db *memDB }

func (r memRecordRepo) Create(_ dbctx.Context, rows []*types.TravelRecord) ([]*types.TravelRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failRecordCreate != nil {
		return nil, r.db.failRecordCreate
	}
	for _, rec := range rows {
		cp := *rec
		cp.Images = nil
		r.db.records[rec.ID] = &cp
	}
	return rows, nil
}

func (r memRecordRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.TravelRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if rec, ok := r.db.records[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (r memRecordRepo) ListByUser(_ dbctx.Context, userID uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error) {
	return r.list(func(rec *types.TravelRecord) bool { return rec.UserID == userID }, publicOnly), nil
}

func (r memRecordRepo) ListByPlan(_ dbctx.Context, planID uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error) {
	return r.list(func(rec *types.TravelRecord) bool { return rec.PlanID == planID }, publicOnly), nil
}

func (r memRecordRepo) list(keep func(*types.TravelRecord) bool, publicOnly bool) []*types.TravelRecord {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*types.TravelRecord
	for _, rec := range r.db.records {
		if keep(rec) && (!publicOnly || rec.IsPublic) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() > out[j].ID.String() })
	return out
}

func (r memRecordRepo) UpdateContent(_ dbctx.Context, row *types.TravelRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.records[row.ID]
	if !ok {
		return errors.New("record missing")
	}
	rec.Title = row.Title
	rec.Content = row.Content
	rec.IsPublic = row.IsPublic
	rec.UpdatedAt = row.UpdatedAt
	return nil
}

func (r memRecordRepo) FullDeleteByIDs(_ dbctx.Context, ids []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range ids {
		delete(r.db.records, id)
	}
	return nil
}

type memImageRepo struct{ db *memDB }

func (r memImageRepo) Create(_ dbctx.Context, rows []*types.RecordImage) ([]*types.RecordImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failImageCreate != nil {
		return nil, r.db.failImageCreate
	}
	for _, img := range rows {
		cp := *img
		r.db.images[img.ID] = &cp
	}
	return rows, nil
}

func (r memImageRepo) ListByRecordIDs(_ dbctx.Context, recordIDs []uuid.UUID) ([]*types.RecordImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range recordIDs {
		want[id] = true
	}
	var out []*types.RecordImage
	for _, img := range r.db.images {
		if want[img.RecordID] {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordID != out[j].RecordID {
			return out[i].RecordID.String() < out[j].RecordID.String()
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r memImageRepo) FullDeleteByRecordIDs(_ dbctx.Context, recordIDs []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, img := range r.db.images {
		for _, rid := range recordIDs {
			if img.RecordID == rid {
				delete(r.db.images, id)
			}
		}
	}
	return nil
}

func (m *memDB) imagesOf(recordID uuid.UUID) []*types.RecordImage {
	out, _ := memImageRepo{db: m}.ListByRecordIDs(dbctx.Context{}, []uuid.UUID{recordID})
	return out
}

type memReviewRepo struct{ db *memDB }

func (r memReviewRepo) GetByDestinationAndUser(_ dbctx.Context, destinationID, userID uuid.UUID) (*types.DestinationReview, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rv := range r.db.reviews {
		if rv.DestinationID == destinationID && rv.UserID == userID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memReviewRepo) ListByRecordIDs(_ dbctx.Context, recordIDs []uuid.UUID) ([]*types.DestinationReview, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range recordIDs {
		want[id] = true
	}
	var out []*types.DestinationReview
	for _, rv := range r.db.reviews {
		if rv.RecordID != nil && want[*rv.RecordID] {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Upsert mirrors ON CONFLICT (destination_id, user_id) DO UPDATE.
func (r memReviewRepo) Upsert(_ dbctx.Context, row *types.DestinationReview) (*types.DestinationReview, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rv := range r.db.reviews {
		if rv.DestinationID == row.DestinationID && rv.UserID == row.UserID {
			rv.Rating = row.Rating
			rv.ShortText = row.ShortText
			rv.DetailedText = row.DetailedText
			rv.RecordID = row.RecordID
			cp := *rv
			return &cp, nil
		}
	}
	cp := *row
	r.db.reviews[row.ID] = &cp
	out := cp
	return &out, nil
}

func (r memReviewRepo) DetachRecord(_ dbctx.Context, recordIDs []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rv := range r.db.reviews {
		for _, id := range recordIDs {
			if rv.RecordID != nil && *rv.RecordID == id {
				rv.RecordID = nil
			}
		}
	}
	return nil
}

func (r memReviewRepo) DetachRecordExcept(_ dbctx.Context, recordID, keepID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rv := range r.db.reviews {
		if rv.ID != keepID && rv.RecordID != nil && *rv.RecordID == recordID {
			rv.RecordID = nil
		}
	}
	return nil
}

type memDirectoryRepo struct{ db *memDB }

func (r memDirectoryRepo) GetUser(_ dbctx.Context, id uuid.UUID) (*types.User, error) {
	return r.db.users[id], nil
}

func (r memDirectoryRepo) GetDestination(_ dbctx.Context, id uuid.UUID) (*types.Destination, error) {
	return r.db.destinations[id], nil
}

func (r memDirectoryRepo) GetDestinationsByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Destination, error) {
	var out []*types.Destination
	for _, id := range ids {
		if d, ok := r.db.destinations[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r memDirectoryRepo) GetPlacesByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Place, error) {
	var out []*types.Place
	for _, id := range ids {
		if p, ok := r.db.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// storage

type fakeImageStore struct {
	mu       sync.Mutex
	n        int
	objects  map[string]bool
	uploads  []string
	deletes  []string
	failAt   int // 1-based upload attempt that fails; 0 never
	failDel  map[string]error
	attempts int
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: map[string]bool{}, failDel: map[string]error{}}
}

func (s *fakeImageStore) Upload(_ context.Context, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failAt > 0 && s.attempts == s.failAt {
		return "", errors.New("bucket unavailable")
	}
	s.n++
	u := fmt.Sprintf("https://storage.googleapis.com/records-bucket/records/2024/06/obj-%d.png", s.n)
	s.objects[u] = true
	s.uploads = append(s.uploads, u)
	return u, nil
}

func (s *fakeImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, url)
	if err := s.failDel[url]; err != nil {
		return err
	}
	delete(s.objects, url)
	return nil
}

func (s *fakeImageStore) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// weather

type fakeWeather struct {
	mu    sync.Mutex
	temps map[[2]int]float64
	fail  map[[2]int]error
	calls [][2]int
}

func (w *fakeWeather) CurrentWeather(_ context.Context, x, y int) (*weather.Observation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := [2]int{x, y}
	w.calls = append(w.calls, k)
	if err := w.fail[k]; err != nil {
		return nil, err
	}
	t, ok := w.temps[k]
	if !ok {
		return &weather.Observation{X: x, Y: y, Sky: weather.ConditionUnknown}, nil
	}
	return &weather.Observation{X: x, Y: y, Temperature: &t, Sky: weather.ConditionClear}, nil
}
