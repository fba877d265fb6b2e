package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/repository"
	"github.com/noah-isme/academy-admin/internal/session"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/web"
)

const testSID = "sid-admin"

var testCookie = middleware.CookieConfig{Name: "academy_sid", MaxAge: time.Hour}

var adminProfile = models.Profile{ID: "u1", FullName: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin}

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(repository.NewMemorySessionRepository(16, time.Hour), nil)
	require.NoError(t, store.Save(context.Background(), testSID, models.Tokens{AccessToken: "access", RefreshToken: "refresh"}, adminProfile))
	return store
}

func newEngine(t *testing.T, store *session.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.Session(store, testCookie, nil))
	return r
}

func do(r http.Handler, method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: testSID})
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func asJSON() []string {
	return []string{"Accept", "application/json"}
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type memoryCategories struct {
	mu      sync.Mutex
	records []models.Category
	listErr error
	mutErr  error
	bodies  []map[string]interface{}
	deleted []string
}

func (m *memoryCategories) List(context.Context, apiclient.Credentials) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Category(nil), m.records...), nil
}

func (m *memoryCategories) Get(_ context.Context, _ apiclient.Credentials, id string) (models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.records {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Category{}, appErrors.ErrNotFound
}

func (m *memoryCategories) Create(_ context.Context, _ apiclient.Credentials, p apiclient.Payload) (models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := p.(apiclient.JSONPayload).Body.(map[string]interface{})
	m.bodies = append(m.bodies, body)
	if m.mutErr != nil {
		return models.Category{}, m.mutErr
	}
	c := models.Category{ID: "new", Name: body["name"].(string), CreatedAt: time.Now()}
	m.records = append(m.records, c)
	return c, nil
}

func (m *memoryCategories) Update(_ context.Context, _ apiclient.Credentials, id string, p apiclient.Payload) (models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := p.(apiclient.JSONPayload).Body.(map[string]interface{})
	m.bodies = append(m.bodies, body)
	if m.mutErr != nil {
		return models.Category{}, m.mutErr
	}
	for i, c := range m.records {
		if c.ID == id {
			m.records[i].Name = body["name"].(string)
			return m.records[i], nil
		}
	}
	return models.Category{}, appErrors.ErrNotFound
}

func (m *memoryCategories) Delete(_ context.Context, _ apiclient.Credentials, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutErr != nil {
		return m.mutErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}
