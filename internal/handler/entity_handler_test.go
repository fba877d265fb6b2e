package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin/internal/crud"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/validation"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

type categoryFixture struct {
	engine *gin.Engine
	res    *memoryCategories
}

func newCategoryFixture(t *testing.T) categoryFixture {
	t.Helper()
	store := newSessionStore(t)
	res := &memoryCategories{records: []models.Category{
		{ID: "c1", Name: "Mathematics", Description: "Numbers", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c2", Name: "Science", Description: "Experiments", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}}
	screen := crud.NewScreen(crud.Categories(res, validation.New()), crud.NewInflight(), nil)
	h := NewEntityHandler(screen, store, service.NewExportService(nil, nil, nil), EntityHandlerOptions{Fields: CategoryFields})

	r := newEngine(t, store)
	h.Register(r)
	return categoryFixture{engine: r, res: res}
}

func TestEntityListFiltersHTML(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodGet, "/categories?q=math", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mathematics")
	assert.NotContains(t, body, "Experiments")
	assert.Contains(t, body, "1 of 2 Categories")
}

func TestEntityListJSON(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodGet, "/categories", nil, asJSON()...)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.Category     `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "c2", envelope.Data[0].ID)
	assert.EqualValues(t, 2, envelope.Meta["total"])
}

func TestEntityEditDialogPrefilled(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodGet, "/categories?edit=c1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Edit Category")
	assert.Contains(t, body, `action="/categories/c1"`)
	assert.Contains(t, body, `value="Mathematics"`)
}

func TestEntityCreateRedirectsWithFlash(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodPost, "/categories", url.Values{"name": {" Physics "}, "description": {"Motion"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/categories", rec.Header().Get("Location"))
	assert.NotEmpty(t, cookieValue(rec, flashCookie))
	require.Len(t, fx.res.bodies, 1)
	assert.Equal(t, "Physics", fx.res.bodies[0]["name"])
}

func TestEntityCreateValidationRerendersDialog(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodPost, "/categories", url.Values{"name": {""}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category name is required")
	assert.Empty(t, fx.res.bodies)
}

func TestEntityCreateServerErrorShowsMessage(t *testing.T) {
	fx := newCategoryFixture(t)
	fx.res.mutErr = appErrors.New("UPSTREAM_ERROR", http.StatusConflict, "Category already exists")

	rec := do(fx.engine, http.MethodPost, "/categories", url.Values{"name": {"Mathematics"}})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category already exists")
	assert.Contains(t, rec.Body.String(), "Add Category")
}

func TestEntityDeleteRequiresConfirmation(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodPost, "/categories/c1/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/categories/c1/delete", rec.Header().Get("Location"))
	assert.Empty(t, fx.res.deleted)

	rec = do(fx.engine, http.MethodGet, "/categories/c1/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "also delete all associated subcategories and items")

	rec = do(fx.engine, http.MethodPost, "/categories/c1/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/categories", rec.Header().Get("Location"))
	assert.Equal(t, []string{"c1"}, fx.res.deleted)
}

func TestEntityDeleteJSON(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodDelete, "/categories/c2", nil, asJSON()...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(fx.engine, http.MethodDelete, "/categories/c2?confirm=yes", nil, asJSON()...)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"c2"}, fx.res.deleted)
}

func TestEntityExportCSV(t *testing.T) {
	fx := newCategoryFixture(t)

	rec := do(fx.engine, http.MethodGet, "/categories/export?format=csv&q=science", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="categories-`)
	assert.Contains(t, rec.Body.String(), "Science")
	assert.NotContains(t, rec.Body.String(), "Mathematics")
}

func TestEntityExpiredSessionRedirectsToLogin(t *testing.T) {
	fx := newCategoryFixture(t)
	fx.res.listErr = appErrors.Clone(appErrors.ErrSessionExpired, "")

	rec := do(fx.engine, http.MethodGet, "/categories", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestEntityListFailureKeepsPage(t *testing.T) {
	fx := newCategoryFixture(t)
	fx.res.listErr = appErrors.ErrUpstreamUnavailable

	rec := do(fx.engine, http.MethodGet, "/categories", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No Categories found")
}

func TestFormValuesUsesJSONNames(t *testing.T) {
	values := formValues(validation.SubcategoryForm{Name: "Algebra", CategoryID: "c1"})
	assert.Equal(t, "Algebra", values["name"])
	assert.Equal(t, "c1", values["categoryId"])
}

func TestSubcategoryOptionsQualifyParent(t *testing.T) {
	lookups := crud.Lookups{
		Categories:    []models.Category{{ID: "c1", Name: "Math"}},
		Subcategories: []models.Subcategory{{ID: "s1", Name: "Algebra", Category: models.Ref{ID: "c1"}}, {ID: "s2", Name: "Orphan", Category: models.Ref{ID: "zz"}}},
	}
	opts := subcategoryOptions(lookups)
	require.Len(t, opts, 2)
	assert.Equal(t, "Math / Algebra", opts[0].Label)
	assert.Equal(t, "Orphan", opts[1].Label)
}
