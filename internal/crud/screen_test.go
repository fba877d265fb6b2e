package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/validation"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

type fakeSession struct{ sid string }

func (f fakeSession) SessionID() string { return f.sid }
func (f fakeSession) Tokens(context.Context) (models.Tokens, error) {
	return models.Tokens{AccessToken: "a", RefreshToken: "r"}, nil
}
func (f fakeSession) RotateAccessToken(context.Context, string) error { return nil }
func (f fakeSession) Invalidate(context.Context) error               { return nil }

type fakeResource[T Record] struct {
	mu       sync.Mutex
	records  []T
	listErr  error
	mutErr   error
	payloads []map[string]interface{}
	deleted  []string
	create   func(body map[string]interface{}) T
	block    chan struct{}
}

func (f *fakeResource[T]) List(context.Context, apiclient.Credentials) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]T(nil), f.records...), nil
}

func (f *fakeResource[T]) Get(_ context.Context, _ apiclient.Credentials, id string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.EntityID() == id {
			return r, nil
		}
	}
	var zero T
	return zero, appErrors.ErrNotFound
}

func (f *fakeResource[T]) capture(p apiclient.Payload) map[string]interface{} {
	body := p.(apiclient.JSONPayload).Body.(map[string]interface{})
	f.mu.Lock()
	f.payloads = append(f.payloads, body)
	f.mu.Unlock()
	return body
}

func (f *fakeResource[T]) Create(_ context.Context, _ apiclient.Credentials, p apiclient.Payload) (T, error) {
	body := f.capture(p)
	if f.block != nil {
		<-f.block
	}
	var zero T
	if f.mutErr != nil {
		return zero, f.mutErr
	}
	record := f.create(body)
	f.mu.Lock()
	f.records = append(f.records, record)
	f.mu.Unlock()
	return record, nil
}

func (f *fakeResource[T]) Update(_ context.Context, _ apiclient.Credentials, id string, p apiclient.Payload) (T, error) {
	f.capture(p)
	r, err := f.Get(context.Background(), nil, id)
	if f.mutErr != nil {
		var zero T
		return zero, f.mutErr
	}
	return r, err
}

func (f *fakeResource[T]) Delete(_ context.Context, _ apiclient.Credentials, id string) error {
	if f.mutErr != nil {
		return f.mutErr
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

var (
	t0   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sess = fakeSession{sid: "sid-1"}
)

func categoryScreen(res *fakeResource[models.Category]) *Screen[models.Category, validation.CategoryForm] {
	res.create = func(body map[string]interface{}) models.Category {
		return models.Category{ID: fmt.Sprintf("c%d", len(res.records)+1), Name: body["name"].(string), CreatedAt: t0.Add(time.Hour * 24 * 30)}
	}
	return NewScreen(Categories(res, validation.New()), nil, nil)
}

func TestCreateCategoryThenListShowsNewestFirst(t *testing.T) {
	res := &fakeResource[models.Category]{records: []models.Category{
		{ID: "c1", Name: "Science", CreatedAt: t0},
		{ID: "c2", Name: "History", CreatedAt: t0.Add(time.Hour)},
	}}
	screen := categoryScreen(res)

	var seen []Mutation[models.Category]
	screen.Observe(func(_ context.Context, m Mutation[models.Category]) { seen = append(seen, m) })

	created, err := screen.Create(context.Background(), sess, validation.CategoryForm{Name: "Math", Description: ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "Math", "description": ""}, res.payloads[0])
	require.Len(t, seen, 1)
	assert.Equal(t, ActionCreate, seen[0].Action)
	assert.Equal(t, created.ID, seen[0].ID)

	view, err := screen.List(context.Background(), sess, "")
	require.NoError(t, err)
	require.Len(t, view.Rows, 3)
	assert.Equal(t, "Math", view.Rows[0].Record.Name)
	assert.Equal(t, "History", view.Rows[1].Record.Name)
	assert.Equal(t, "Category created successfully!", screen.SuccessMessage(ActionCreate))
}

func TestValidationFailureMakesNoCall(t *testing.T) {
	res := &fakeResource[models.Category]{}
	screen := categoryScreen(res)

	_, err := screen.Create(context.Background(), sess, validation.CategoryForm{Name: "M"})
	require.Error(t, err)
	assert.Equal(t, "Category name must be at least 2 characters", appErrors.FromError(err).Fields["name"])
	assert.Empty(t, res.payloads)
}

func TestServerFailureLeavesListUntouched(t *testing.T) {
	res := &fakeResource[models.Category]{
		records: []models.Category{{ID: "c1", Name: "Science", CreatedAt: t0}},
		mutErr:  appErrors.Clone(appErrors.ErrUpstream, "Category already exists"),
	}
	screen := categoryScreen(res)

	_, err := screen.Create(context.Background(), sess, validation.CategoryForm{Name: "Science"})
	require.Error(t, err)
	assert.Equal(t, "Category already exists", appErrors.UserMessage(err, screen.FailureMessage("create")))

	view, err := screen.List(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Len(t, view.Rows, 1)
	assert.False(t, view.Submitting)
}

func TestListFailureIsReported(t *testing.T) {
	res := &fakeResource[models.Category]{listErr: errors.New("boom")}
	screen := categoryScreen(res)

	_, err := screen.List(context.Background(), sess, "")
	require.Error(t, err)
	assert.Equal(t, "Failed to load categories", screen.LoadFailureMessage())
}

func TestDeleteRequiresConfirmationAndWarnsOfCascade(t *testing.T) {
	res := &fakeResource[models.Category]{records: []models.Category{{ID: "c1", Name: "Math"}}}
	screen := categoryScreen(res)

	assert.Contains(t, screen.ConfirmText(), "will also delete all associated subcategories and items")

	err := screen.Delete(context.Background(), sess, "c1", false)
	assert.True(t, appErrors.HasCode(err, ErrConfirmationRequired.Code))
	assert.Empty(t, res.deleted)

	require.NoError(t, screen.Delete(context.Background(), sess, "c1", true))
	assert.Equal(t, []string{"c1"}, res.deleted)
}

func TestSubmittingGuardRejectsConcurrentSubmission(t *testing.T) {
	res := &fakeResource[models.Category]{block: make(chan struct{})}
	screen := categoryScreen(res)

	done := make(chan error, 1)
	go func() {
		_, err := screen.Create(context.Background(), sess, validation.CategoryForm{Name: "Math"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		res.mu.Lock()
		defer res.mu.Unlock()
		return len(res.payloads) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := screen.Create(context.Background(), sess, validation.CategoryForm{Name: "Physics"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusy.Code))

	view, listErr := screen.List(context.Background(), sess, "")
	require.NoError(t, listErr)
	assert.True(t, view.Submitting)

	other := fakeSession{sid: "sid-2"}
	_, otherErr := screen.List(context.Background(), other, "")
	require.NoError(t, otherErr)

	close(res.block)
	require.NoError(t, <-done)
}

func taxonomyFixture() (*fakeResource[models.Category], *fakeResource[models.Subcategory]) {
	cats := &fakeResource[models.Category]{records: []models.Category{
		{ID: "c1", Name: "Mathematics", CreatedAt: t0},
		{ID: "c2", Name: "Languages", CreatedAt: t0},
	}}
	subs := &fakeResource[models.Subcategory]{records: []models.Subcategory{
		{ID: "s1", Name: "Algebra", Category: models.Ref{ID: "c1"}, CreatedAt: t0.Add(time.Hour)},
		{ID: "s2", Name: "Grammar", Category: models.Ref{ID: "c2"}, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "s3", Name: "Orphan", Category: models.Ref{ID: "gone"}, CreatedAt: t0},
	}}
	return cats, subs
}

func TestSubcategoryScreenResolvesCategories(t *testing.T) {
	cats, subs := taxonomyFixture()
	screen := NewScreen(Subcategories(subs, NewTaxonomy(cats, subs, nil), validation.New()), nil, nil)

	view, err := screen.List(context.Background(), sess, "")
	require.NoError(t, err)
	require.Len(t, view.Rows, 3)
	assert.Equal(t, "Grammar", view.Rows[0].Record.Name)
	assert.Equal(t, "Languages", view.Rows[0].Label(LabelCategory))
	assert.Equal(t, UnknownCategory, view.Rows[2].Label(LabelCategory))

	view, err = screen.List(context.Background(), sess, "MATHEM")
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Algebra", view.Rows[0].Record.Name)
	assert.Equal(t, 3, view.Total)
}

func TestItemScreenFiltersOnResolvedNamesIdempotently(t *testing.T) {
	cats, subs := taxonomyFixture()
	items := &fakeResource[models.Item]{records: []models.Item{
		{ID: "i1", Name: "Linear equations", Type: models.ItemTypePDF, FilePath: "/uploads/1_eq.pdf", Subcategory: models.Ref{ID: "s1"}, CreatedAt: t0},
		{ID: "i2", Name: "Tenses", Type: models.ItemTypeYouTube, YouTubeURL: "https://youtu.be/dQw4w9WgXcQ", Subcategory: models.Ref{ID: "s2"}, CreatedAt: t0.Add(time.Hour)},
		{ID: "i3", Name: "Lost", Type: models.ItemTypePDF, FilePath: "/uploads/x.pdf", Subcategory: models.Ref{ID: "missing"}, CreatedAt: t0.Add(2 * time.Hour)},
	}}
	screen := NewScreen(Items(items, NewTaxonomy(cats, subs, nil), validation.New()), nil, nil)

	for _, query := range []string{"algebra", "languages", "lin", "unknown", "zzz", ""} {
		view, err := screen.List(context.Background(), sess, query)
		require.NoError(t, err)
		again := Filter(view.Rows, query)
		assert.Equal(t, view.Rows, again, "query %q", query)
	}

	view, err := screen.List(context.Background(), sess, "languages")
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "i2", view.Rows[0].Record.ID)

	view, err = screen.List(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Equal(t, UnknownSubcategory, view.Rows[0].Label(LabelSubcategory))
	assert.Equal(t, UnknownCategory, view.Rows[0].Label(LabelCategory))
}

func TestItemWireTransformSendsOnlySelectedSource(t *testing.T) {
	def := Items(&fakeResource[models.Item]{}, nil, validation.New())

	body := def.ToWire(validation.ItemForm{Name: "Intro", Type: "pdf", SubcategoryID: "s1", FilePath: "/uploads/a.pdf", YouTubeURL: "https://youtu.be/x"}, ModeCreate).(apiclient.JSONPayload).Body.(map[string]interface{})
	assert.Equal(t, "s1", body["subcategory_id"])
	assert.Equal(t, "/uploads/a.pdf", body["file_path"])
	assert.NotContains(t, body, "youtube_url")
	assert.NotContains(t, body, "subcategoryId")
}

func TestEditRoundTripReconstructsRecord(t *testing.T) {
	cats, taxonomySubs := taxonomyFixture()
	taxonomy := NewTaxonomy(cats, taxonomySubs, nil)

	item := models.Item{ID: "i1", Name: "Tenses", Description: "Verb forms", Type: models.ItemTypeYouTube, YouTubeURL: "https://youtu.be/dQw4w9WgXcQ", Subcategory: models.Ref{ID: "s2", Name: "Grammar"}, CreatedAt: t0}
	items := &fakeResource[models.Item]{records: []models.Item{item}}
	itemScreen := NewScreen(Items(items, taxonomy, validation.New()), nil, nil)

	_, err := itemScreen.Update(context.Background(), sess, item.ID, itemScreen.Prefill(item))
	require.NoError(t, err)
	assertVisibleFields(t, item, items.payloads[0], "name", "description", "type", "youtube_url", "subcategory_id")

	sub := models.Subcategory{ID: "s1", Name: "Algebra", Description: "Equations", Category: models.Ref{ID: "c1"}, CreatedAt: t0}
	subs := &fakeResource[models.Subcategory]{records: []models.Subcategory{sub}}
	subScreen := NewScreen(Subcategories(subs, taxonomy, validation.New()), nil, nil)
	_, err = subScreen.Update(context.Background(), sess, sub.ID, subScreen.Prefill(sub))
	require.NoError(t, err)
	assertVisibleFields(t, sub, subs.payloads[0], "name", "description", "category_id")

	user := models.User{ID: "u1", FullName: "Ada Lovelace", Email: "ada@x.com", Role: models.RoleAdmin, CreatedAt: t0}
	users := &fakeResource[models.User]{records: []models.User{user}}
	userScreen := NewScreen(Users(users, validation.New()), nil, nil)
	_, err = userScreen.Update(context.Background(), sess, user.ID, userScreen.Prefill(user))
	require.NoError(t, err)
	assertVisibleFields(t, user, users.payloads[0], "fullName", "email", "role")
	assert.NotContains(t, users.payloads[0], "password")
}

func assertVisibleFields(t *testing.T, record interface{}, payload map[string]interface{}, keys ...string) {
	t.Helper()
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	for _, k := range keys {
		assert.Equal(t, wire[k], payload[k], "field %s", k)
	}
}

func TestItemTypeSwitchClearsOtherSource(t *testing.T) {
	cats, subs := taxonomyFixture()
	item := models.Item{ID: "i1", Name: "Notes", Type: models.ItemTypePDF, FilePath: "/uploads/1_notes.pdf", Subcategory: models.Ref{ID: "s1"}, CreatedAt: t0}
	items := &fakeResource[models.Item]{records: []models.Item{item}}
	screen := NewScreen(Items(items, NewTaxonomy(cats, subs, nil), validation.New()), nil, nil)

	var got Mutation[models.Item]
	screen.Observe(func(_ context.Context, m Mutation[models.Item]) { got = m })

	form := screen.Prefill(item)
	form.Type = string(models.ItemTypeYouTube)
	form.YouTubeURL = "https://youtu.be/abc"
	_, err := screen.Update(context.Background(), sess, item.ID, form)
	require.NoError(t, err)

	require.Len(t, items.payloads, 1)
	body := items.payloads[0]
	assert.Equal(t, "https://youtu.be/abc", body["youtube_url"])
	require.Contains(t, body, "file_path")
	assert.Equal(t, "", body["file_path"])

	assert.Equal(t, ActionUpdate, got.Action)
	require.NotNil(t, got.Previous)
	assert.Equal(t, "/uploads/1_notes.pdf", got.Previous.FilePath)

	back := screen.Prefill(item)
	_, err = screen.Update(context.Background(), sess, item.ID, back)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1_notes.pdf", items.payloads[1]["file_path"])
	assert.Equal(t, "", items.payloads[1]["youtube_url"])

	created := Items(items, nil, validation.New()).ToWire(back, ModeCreate).(apiclient.JSONPayload).Body.(map[string]interface{})
	assert.NotContains(t, created, "youtube_url")
}

func TestUnknownParentIsRejectedBeforeSubmit(t *testing.T) {
	cats, subs := taxonomyFixture()
	taxonomy := NewTaxonomy(cats, subs, nil)

	subScreen := NewScreen(Subcategories(subs, taxonomy, validation.New()), nil, nil)
	_, err := subScreen.Create(context.Background(), sess, validation.SubcategoryForm{Name: "Algebra", CategoryID: "does-not-exist"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, "Parent category is required", appErrors.FromError(err).Fields["categoryId"])
	assert.Empty(t, subs.payloads)

	items := &fakeResource[models.Item]{}
	itemScreen := NewScreen(Items(items, taxonomy, validation.New()), nil, nil)
	_, err = itemScreen.Create(context.Background(), sess, validation.ItemForm{Name: "Intro", Type: "pdf", SubcategoryID: "gone", FilePath: "/uploads/a.pdf"})
	require.Error(t, err)
	assert.Equal(t, "Subcategory is required", appErrors.FromError(err).Fields["subcategoryId"])
	assert.Empty(t, items.payloads)

	cats.listErr = appErrors.Clone(appErrors.ErrUpstream, "categories unavailable")
	_, err = subScreen.Create(context.Background(), sess, validation.SubcategoryForm{Name: "Algebra", CategoryID: "c1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUpstream.Code))
	assert.Empty(t, subs.payloads)
}

func TestItemDeleteNotifiesWithRecord(t *testing.T) {
	item := models.Item{ID: "i1", Name: "Doc", Type: models.ItemTypePDF, FilePath: "/uploads/1_doc.pdf"}
	items := &fakeResource[models.Item]{records: []models.Item{item}}
	screen := NewScreen(Items(items, nil, validation.New()), nil, nil)

	var got Mutation[models.Item]
	screen.Observe(func(_ context.Context, m Mutation[models.Item]) { got = m })

	require.NoError(t, screen.Delete(context.Background(), sess, "i1", true))
	assert.Equal(t, ActionDelete, got.Action)
	require.NotNil(t, got.Record)
	assert.Equal(t, "/uploads/1_doc.pdf", got.Record.FilePath)
}

func TestSortKeepsUndatedLast(t *testing.T) {
	rows := []Row[models.Category]{
		newRow(models.Category{ID: "a"}, nil, nil),
		newRow(models.Category{ID: "b", CreatedAt: t0}, nil, nil),
		newRow(models.Category{ID: "c", CreatedAt: t0.Add(time.Minute)}, nil, nil),
	}
	SortNewestFirst(rows)
	assert.Equal(t, "c", rows[0].Record.ID)
	assert.Equal(t, "b", rows[1].Record.ID)
	assert.Equal(t, "a", rows[2].Record.ID)
}
