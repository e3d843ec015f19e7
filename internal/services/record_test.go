package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/data/aggregates/testutil"
	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/pkg/opt"
	"github.com/yungbote/travelog-backend/internal/platform/apierr"
	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
)

type recordFixture struct {
	db    *memDB
	store *fakeImageStore
	tx    *testutil.FakeTx
	svc   RecordService
	user  *types.User
	dest  *types.Destination
	plan  *types.TravelPlan
}

func newRecordFixture(t *testing.T, cfg RecordServiceConfig) *recordFixture {
	t.Helper()
	db := newMemDB()
	f := &recordFixture{db: db, store: newFakeImageStore(), tx: testutil.NewFakeTx()}
	f.user = db.addUser()
	f.dest = db.addDestination("Jeju")
	f.plan = db.addPlan(f.user.ID, f.dest.ID, "2024-06-01", "2024-06-05", types.PlanStatusNotStarted)
	f.svc = NewRecordService(
		testLogger(t), cfg, f.tx,
		memPlanRepo{db}, memRecordRepo{db}, memImageRepo{db}, memReviewRepo{db}, memDirectoryRepo{db},
		f.store, nil,
	)
	return f
}

func (f *recordFixture) images(t *testing.T, names ...string) []ImageUpload {
	t.Helper()
	out := make([]ImageUpload, 0, len(names))
	for i, n := range names {
		out = append(out, ImageUpload{Filename: n, Data: pngBytes(t, i+1, i+1)})
	}
	return out
}

func asUser(id uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: id})
}

func TestCreateRecordKeepsUploadOrderAndCover(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{UploadConcurrency: 1})
	ctx := asUser(f.user.ID)

	view, err := f.svc.Create(ctx, CreateRecordInput{
		PlanID: f.plan.ID,
		Title:  "Day one",
		Images: f.images(t, "a.jpg", "b.jpg", "c.jpg"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(view.ImageURLs) != 3 {
		t.Fatalf("image count: want=3 got=%d", len(view.ImageURLs))
	}
	for i, u := range f.store.uploads {
		if view.ImageURLs[i] != u {
			t.Fatalf("image %d: want=%s got=%s", i, u, view.ImageURLs[i])
		}
	}
	if view.CoverURL != f.store.uploads[0] {
		t.Fatalf("cover: want=%s got=%s", f.store.uploads[0], view.CoverURL)
	}
	if view.UserID != f.user.ID || view.PlanID != f.plan.ID {
		t.Fatalf("owner/plan not copied from plan: %+v", view)
	}
	rows := f.db.imagesOf(view.ID)
	for i, img := range rows {
		if img.Position != i || img.URL != view.ImageURLs[i] {
			t.Fatalf("row %d: position=%d url=%s", i, img.Position, img.URL)
		}
	}
}

func TestCreateRecordConcurrentUploadsStillOrdered(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{UploadConcurrency: 4})
	view, err := f.svc.Create(context.Background(), CreateRecordInput{
		PlanID: f.plan.ID,
		Title:  "Many",
		Images: f.images(t, "1.png", "2.png", "3.png", "4.png", "5.png"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rows := f.db.imagesOf(view.ID)
	if len(rows) != 5 {
		t.Fatalf("rows: want=5 got=%d", len(rows))
	}
	if view.CoverURL != rows[0].URL {
		t.Fatalf("cover %s is not position 0 (%s)", view.CoverURL, rows[0].URL)
	}
}

func TestCreateAndUpdateReviewKeepsSingleton(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	ctx := asUser(f.user.ID)

	view, err := f.svc.Create(ctx, CreateRecordInput{
		PlanID: f.plan.ID,
		Title:  "Beach",
		Images: f.images(t, "a.jpg", "b.jpg"),
		Review: &ReviewInput{DestinationID: f.dest.ID, Rating: 5, ShortText: "great"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Review == nil || view.Review.Rating != 5 {
		t.Fatalf("review: %+v", view.Review)
	}
	firstReviewID := view.Review.ID

	updated, err := f.svc.Update(ctx, view.ID, UpdateRecordInput{
		IsPublic: true,
		Review:   &ReviewInput{DestinationID: f.dest.ID, Rating: 3, ShortText: "ok"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Review == nil || updated.Review.Rating != 3 || updated.Review.ID != firstReviewID {
		t.Fatalf("updated review: %+v", updated.Review)
	}
	if reviews := f.db.reviewsFor(f.dest.ID, f.user.ID); len(reviews) != 1 {
		t.Fatalf("reviews for (dest,user): want=1 got=%d", len(reviews))
	}
	if len(updated.ImageURLs) != 2 {
		t.Fatalf("images should be untouched when absent: got %d", len(updated.ImageURLs))
	}
	if !updated.IsPublic {
		t.Fatalf("is_public not applied")
	}
}

func TestSecondRecordReviewRelinksExistingReview(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	ctx := asUser(f.user.ID)

	first, err := f.svc.Create(ctx, CreateRecordInput{PlanID: f.plan.ID, Title: "one",
		Review: &ReviewInput{DestinationID: f.dest.ID, Rating: 4}})
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second, err := f.svc.Create(ctx, CreateRecordInput{PlanID: f.plan.ID, Title: "two",
		Review: &ReviewInput{DestinationID: f.dest.ID, Rating: 2}})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	reviews := f.db.reviewsFor(f.dest.ID, f.user.ID)
	if len(reviews) != 1 {
		t.Fatalf("reviews: want=1 got=%d", len(reviews))
	}
	if reviews[0].RecordID == nil || *reviews[0].RecordID != second.ID || reviews[0].Rating != 2 {
		t.Fatalf("review not relinked to latest record: %+v", reviews[0])
	}
	got, err := f.svc.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Review != nil {
		t.Fatalf("first record should no longer embed the review")
	}
}

func TestUpdateToOtherDestinationMovesReviewLink(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	ctx := asUser(f.user.ID)
	busan := f.db.addDestination("Busan")

	view, err := f.svc.Create(ctx, CreateRecordInput{PlanID: f.plan.ID, Title: "trip",
		Review: &ReviewInput{DestinationID: f.dest.ID, Rating: 5}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := f.svc.Update(ctx, view.ID, UpdateRecordInput{
		Review: &ReviewInput{DestinationID: busan.ID, Rating: 2},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Review == nil || updated.Review.DestinationID != busan.ID || updated.Review.Rating != 2 {
		t.Fatalf("updated review: %+v", updated.Review)
	}

	linked, err := memReviewRepo{f.db}.ListByRecordIDs(dbctx.Context{}, []uuid.UUID{view.ID})
	if err != nil {
		t.Fatalf("ListByRecordIDs: %v", err)
	}
	if len(linked) != 1 || linked[0].DestinationID != busan.ID {
		t.Fatalf("linked reviews: want only Busan, got %d", len(linked))
	}
	jeju := f.db.reviewsFor(f.dest.ID, f.user.ID)
	if len(jeju) != 1 || jeju[0].RecordID != nil || jeju[0].Rating != 5 {
		t.Fatalf("Jeju review should survive unlinked: %+v", jeju)
	}

	got, err := f.svc.GetByID(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Review == nil || got.Review.DestinationID != busan.ID {
		t.Fatalf("GetByID embeds wrong review: %+v", got.Review)
	}
}

func TestUpdateWithEmptyImageSetClearsImages(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	ctx := asUser(f.user.ID)
	view, err := f.svc.Create(ctx, CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png", "b.png")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := f.svc.Update(ctx, view.ID, UpdateRecordInput{
		Title:  opt.Some("renamed"),
		Images: opt.Some([]ImageUpload{}),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.ImageURLs) != 0 || updated.CoverURL != "" {
		t.Fatalf("expected no images and no cover, got %+v", updated)
	}
	if updated.Title != "renamed" {
		t.Fatalf("title: got %q", updated.Title)
	}
	if f.store.live() != 0 {
		t.Fatalf("previous objects should be deleted after commit, %d left", f.store.live())
	}
}

func TestUpdateReplacesImages(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{UploadConcurrency: 1})
	ctx := asUser(f.user.ID)
	view, err := f.svc.Create(ctx, CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	old := view.ImageURLs[0]

	updated, err := f.svc.Update(ctx, view.ID, UpdateRecordInput{Images: opt.Some(f.images(t, "x.png", "y.png"))})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.ImageURLs) != 2 || updated.CoverURL != updated.ImageURLs[0] {
		t.Fatalf("unexpected images: %+v", updated.ImageURLs)
	}
	for _, u := range updated.ImageURLs {
		if u == old {
			t.Fatalf("old image still attached")
		}
	}
	if f.store.objects[old] {
		t.Fatalf("old object not deleted")
	}
}

func TestDeleteRecordRemovesObjectsThenRows(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	ctx := asUser(f.user.ID)
	view, err := f.svc.Create(ctx, CreateRecordInput{
		PlanID: f.plan.ID,
		Title:  "t",
		Images: f.images(t, "a.png", "b.png", "c.png"),
		Review: &ReviewInput{DestinationID: f.dest.ID, Rating: 4},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.svc.Delete(ctx, view.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.store.deletes) != 3 || f.store.live() != 0 {
		t.Fatalf("storage deletes: want=3 got=%d (live=%d)", len(f.store.deletes), f.store.live())
	}
	if _, ok := f.db.records[view.ID]; ok {
		t.Fatalf("record row still present")
	}
	if len(f.db.imagesOf(view.ID)) != 0 {
		t.Fatalf("image rows still present")
	}
	reviews := f.db.reviewsFor(f.dest.ID, f.user.ID)
	if len(reviews) != 1 || reviews[0].RecordID != nil {
		t.Fatalf("review should survive detached: %+v", reviews)
	}
	if _, err := f.svc.GetByID(ctx, view.ID); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("GetByID after delete: want not_found got %v", err)
	}
}

func TestDeleteStrictKeepsRowOnMalformedURL(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{DeletePolicy: DeletePolicyStrict})
	view, err := f.svc.Create(context.Background(), CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.failDel[view.ImageURLs[0]] = apierr.StorageKey("gcs.delete", "bucket %q not found in %q", "records-bucket", view.ImageURLs[0])

	err = f.svc.Delete(context.Background(), view.ID)
	if !apierr.IsKind(err, apierr.KindStorageKey) {
		t.Fatalf("Delete: want storage_key got %v", err)
	}
	if _, ok := f.db.records[view.ID]; !ok {
		t.Fatalf("record row removed under strict policy")
	}
	if len(f.db.imagesOf(view.ID)) != 1 {
		t.Fatalf("image rows removed under strict policy")
	}
}

func TestDeleteLenientRemovesRowAndReportsFailure(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{DeletePolicy: DeletePolicyLenient})
	view, err := f.svc.Create(context.Background(), CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png", "b.png")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.failDel[view.ImageURLs[1]] = errors.New("permission denied")

	err = f.svc.Delete(context.Background(), view.ID)
	if !apierr.IsKind(err, apierr.KindStorage) {
		t.Fatalf("Delete: want storage got %v", err)
	}
	if _, ok := f.db.records[view.ID]; ok {
		t.Fatalf("record row kept under lenient policy")
	}
	if len(f.store.deletes) != 2 {
		t.Fatalf("every object should be attempted, got %d", len(f.store.deletes))
	}
}

func TestDeleteLenientReportsMalformedURLAsStorageKey(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{DeletePolicy: DeletePolicyLenient})
	view, err := f.svc.Create(context.Background(), CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png", "b.png")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.failDel[view.ImageURLs[0]] = errors.New("permission denied")
	f.store.failDel[view.ImageURLs[1]] = apierr.StorageKey("gcs.delete", "bucket %q not found in %q", "records-bucket", view.ImageURLs[1])

	err = f.svc.Delete(context.Background(), view.ID)
	if !apierr.IsKind(err, apierr.KindStorageKey) {
		t.Fatalf("Delete: want storage_key got kind=%s err=%v", apierr.KindOf(err), err)
	}
	if apierr.Retryable(err) {
		t.Fatalf("malformed URL failures must not be retryable")
	}
	if _, ok := f.db.records[view.ID]; ok {
		t.Fatalf("record row kept under lenient policy")
	}
}

func TestCreateUploadFailureCompensates(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{UploadConcurrency: 1})
	f.store.failAt = 2

	_, err := f.svc.Create(context.Background(), CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png", "b.png", "c.png")})
	if !apierr.IsKind(err, apierr.KindStorage) {
		t.Fatalf("Create: want storage got %v", err)
	}
	if len(f.db.records) != 0 {
		t.Fatalf("record persisted after upload failure")
	}
	if f.store.live() != 0 {
		t.Fatalf("uploaded objects not compensated: %d live", f.store.live())
	}
	if f.tx.Count(testutil.EventBegin) != 0 {
		t.Fatalf("transaction opened after upload failure")
	}
}

func TestCreateTransactionFailureCompensates(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	f.db.failImageCreate = errors.New("db down")

	_, err := f.svc.Create(context.Background(), CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png", "b.png")})
	if err == nil {
		t.Fatalf("Create: expected error")
	}
	if len(f.store.uploads) != 2 {
		t.Fatalf("uploads: want=2 got=%d", len(f.store.uploads))
	}
	if f.store.live() != 0 {
		t.Fatalf("uploaded objects not compensated: %d live", f.store.live())
	}
}

func TestCreateCommitFailureCompensates(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	f.tx.FailOn(testutil.EventCommit, errors.New("commit failed"))

	_, err := f.svc.Create(context.Background(), CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: f.images(t, "a.png")})
	if err == nil {
		t.Fatalf("Create: expected error")
	}
	if n := f.tx.Count(testutil.EventRollback); n != 1 {
		t.Fatalf("rollbacks: want=1 got=%d", n)
	}
	if f.store.live() != 0 {
		t.Fatalf("uploaded objects not compensated: %d live", f.store.live())
	}
}

func TestCreateValidation(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	cases := []struct {
		name string
		in   CreateRecordInput
		kind apierr.Kind
	}{
		{"unknown plan", CreateRecordInput{PlanID: uuid.New(), Title: "t"}, apierr.KindNotFound},
		{"blank title", CreateRecordInput{PlanID: f.plan.ID, Title: "  "}, apierr.KindValidation},
		{"bad rating", CreateRecordInput{PlanID: f.plan.ID, Title: "t", Review: &ReviewInput{DestinationID: f.dest.ID, Rating: 6}}, apierr.KindValidation},
		{"unknown destination", CreateRecordInput{PlanID: f.plan.ID, Title: "t", Review: &ReviewInput{DestinationID: uuid.New(), Rating: 3}}, apierr.KindValidation},
		{"not an image", CreateRecordInput{PlanID: f.plan.ID, Title: "t", Images: []ImageUpload{{Filename: "x.txt", Data: []byte("hello")}}}, apierr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.in)
			if !apierr.IsKind(err, tc.kind) {
				t.Fatalf("want %s got %v", tc.kind, err)
			}
		})
	}
	if len(f.store.uploads) != 0 {
		t.Fatalf("nothing should be uploaded for rejected input")
	}
}

func TestRecordOwnershipAndVisibility(t *testing.T) {
	f := newRecordFixture(t, RecordServiceConfig{})
	owner := asUser(f.user.ID)
	other := f.db.addUser()
	stranger := asUser(other.ID)

	if _, err := f.svc.Create(stranger, CreateRecordInput{PlanID: f.plan.ID, Title: "t"}); !apierr.IsKind(err, apierr.KindForbidden) {
		t.Fatalf("Create by stranger: want forbidden got %v", err)
	}
	private, err := f.svc.Create(owner, CreateRecordInput{PlanID: f.plan.ID, Title: "private"})
	if err != nil {
		t.Fatalf("Create private: %v", err)
	}
	public, err := f.svc.Create(owner, CreateRecordInput{PlanID: f.plan.ID, Title: "public", IsPublic: true})
	if err != nil {
		t.Fatalf("Create public: %v", err)
	}

	if _, err := f.svc.GetByID(stranger, private.ID); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("stranger GetByID private: want not_found got %v", err)
	}
	if _, err := f.svc.Update(stranger, public.ID, UpdateRecordInput{}); !apierr.IsKind(err, apierr.KindForbidden) {
		t.Fatalf("stranger Update: want forbidden got %v", err)
	}
	if err := f.svc.Delete(stranger, public.ID); !apierr.IsKind(err, apierr.KindForbidden) {
		t.Fatalf("stranger Delete: want forbidden got %v", err)
	}

	mine, err := f.svc.ListByUser(owner, f.user.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != public.ID {
		t.Fatalf("ListByUser: want newest first of 2, got %d", len(mine))
	}
	pub, err := f.svc.ListPublicByUser(owner, f.user.ID)
	if err != nil {
		t.Fatalf("ListPublicByUser: %v", err)
	}
	if len(pub) != 1 || pub[0].ID != public.ID {
		t.Fatalf("ListPublicByUser: unexpected %+v", pub)
	}
	byPlan, err := f.svc.ListByPlan(stranger, f.plan.ID)
	if err != nil {
		t.Fatalf("ListByPlan: %v", err)
	}
	if len(byPlan) != 1 {
		t.Fatalf("stranger ListByPlan should only see public records, got %d", len(byPlan))
	}
	if _, err := f.svc.ListByUser(owner, uuid.New()); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("ListByUser unknown user: want not_found got %v", err)
	}
	if _, err := f.svc.ListPublicByPlan(owner, uuid.New()); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("ListPublicByPlan unknown plan: want not_found got %v", err)
	}
}

func TestParseDeletePolicy(t *testing.T) {
	for in, want := range map[string]DeletePolicy{"": DeletePolicyStrict, "STRICT": DeletePolicyStrict, " lenient ": DeletePolicyLenient} {
		got, err := ParseDeletePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseDeletePolicy(%q): want=%s got=%s err=%v", in, want, got, err)
		}
	}
	if _, err := ParseDeletePolicy("yolo"); err == nil {
		t.Fatalf("ParseDeletePolicy: expected error")
	}
}
