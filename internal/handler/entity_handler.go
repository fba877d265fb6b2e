package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/crud"
	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/session"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/response"
)

type sessionBinder interface {
	Bind(sid string) *session.Binding
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one input of an entity dialog. Name matches the form tag.
type Field struct {
	Name        string
	Label       string
	Kind        string
	Placeholder string
	Options     func(crud.Lookups) []Option
}

type fieldView struct {
	Name        string
	Label       string
	Kind        string
	Placeholder string
	Value       string
	Error       string
	Options     []Option
}

type dialogView struct {
	Heading string
	Action  string
	Submit  string
	Error   string
	Upload  bool
	Return  string
	Fields  []fieldView
}

type tableRow struct {
	ID    string
	Cells []string
}

type listPage struct {
	Key        string
	Title      string
	Label      string
	Query      string
	Headers    []string
	Rows       []tableRow
	Total      int
	Submitting bool
	LoadError  string
	Dialog     *dialogView
}

// EntityHandler serves the list, dialog, delete and export routes of one entity screen.
type EntityHandler[T crud.Record, F any] struct {
	screen   *crud.Screen[T, F]
	sessions sessionBinder
	exports  *service.ExportService
	fields   []Field
	upload   bool
	logger   *zap.Logger
}

// EntityHandlerOptions configures an EntityHandler.
type EntityHandlerOptions struct {
	Fields []Field
	// Upload shows the PDF upload form in the item dialog.
	Upload bool
	Logger *zap.Logger
}

// NewEntityHandler constructs a handler for screen.
func NewEntityHandler[T crud.Record, F any](screen *crud.Screen[T, F], sessions sessionBinder, exports *service.ExportService, opts EntityHandlerOptions) *EntityHandler[T, F] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityHandler[T, F]{
		screen:   screen,
		sessions: sessions,
		exports:  exports,
		fields:   opts.Fields,
		upload:   opts.Upload,
		logger:   logger.With(zap.String("entity", screen.Definition().Key)),
	}
}

// Register mounts the entity routes under /<key>.
func (h *EntityHandler[T, F]) Register(r gin.IRouter) {
	g := r.Group("/" + h.Key())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/export", h.Export)
	g.POST("/:id", h.Update)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/delete", h.ConfirmDelete)
	g.POST("/:id/delete", h.Delete)
}

// Key is the path segment of the entity screen.
func (h *EntityHandler[T, F]) Key() string {
	return h.screen.Definition().Key
}

func (h *EntityHandler[T, F]) session(c *gin.Context) crud.Session {
	return h.sessions.Bind(middleware.SessionID(c))
}

// List godoc
// @Summary List entity records
// @Description Lists users, categories, subcategories or items newest first, filtered by q
// @Tags Entities
// @Produce json
// @Param entity path string true "users, categories, subcategories or items"
// @Param q query string false "Case-insensitive filter"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /{entity} [get]
func (h *EntityHandler[T, F]) List(c *gin.Context) {
	query := c.Query("q")
	view, err := h.screen.List(c.Request.Context(), h.session(c), "")
	if err != nil && handleSessionExpired(c, err) {
		return
	}
	rows := crud.Filter(view.Rows, query)

	if response.WantsJSON(c) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, records(rows), map[string]interface{}{
			"total":      view.Total,
			"count":      len(rows),
			"query":      query,
			"submitting": view.Submitting,
		})
		return
	}

	var loadError string
	if err != nil {
		h.logger.Warn("list failed", zap.Error(err))
		loadError = appErrors.UserMessage(err, h.screen.LoadFailureMessage())
	}

	var dialog *dialogView
	switch {
	case c.Query("dialog") == "create":
		var form F
		_ = c.ShouldBindQuery(&form)
		dialog = h.dialog(crud.ModeCreate, "", form, nil, "", view.Lookups)
	case c.Query("edit") != "":
		id := c.Query("edit")
		row, ok := findRow(view.Rows, id)
		if !ok {
			if err == nil {
				loadError = h.screen.Definition().Label + " not found"
			}
			break
		}
		form := h.screen.Prefill(row.Record)
		_ = c.ShouldBindQuery(&form)
		dialog = h.dialog(crud.ModeUpdate, id, form, nil, "", view.Lookups)
	}

	h.render(c, http.StatusOK, view, rows, query, loadError, dialog)
}

// Create godoc
// @Summary Create an entity record
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "users, categories, subcategories or items"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /{entity} [post]
func (h *EntityHandler[T, F]) Create(c *gin.Context) {
	var form F
	if err := c.ShouldBind(&form); err != nil {
		h.submitFailed(c, crud.ModeCreate, "", form, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid request payload"))
		return
	}
	record, err := h.screen.Create(c.Request.Context(), h.session(c), form)
	if err != nil {
		h.submitFailed(c, crud.ModeCreate, "", form, err)
		return
	}
	if response.WantsJSON(c) {
		response.Created(c, record)
		return
	}
	redirectWithFlash(c, "/"+h.Key(), FlashSuccess, h.screen.SuccessMessage(crud.ActionCreate))
}

// Update godoc
// @Summary Update an entity record
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "users, categories, subcategories or items"
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /{entity}/{id} [put]
func (h *EntityHandler[T, F]) Update(c *gin.Context) {
	id := c.Param("id")
	var form F
	if err := c.ShouldBind(&form); err != nil {
		h.submitFailed(c, crud.ModeUpdate, id, form, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid request payload"))
		return
	}
	record, err := h.screen.Update(c.Request.Context(), h.session(c), id, form)
	if err != nil {
		h.submitFailed(c, crud.ModeUpdate, id, form, err)
		return
	}
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, record)
		return
	}
	redirectWithFlash(c, "/"+h.Key(), FlashSuccess, h.screen.SuccessMessage(crud.ActionUpdate))
}

// ConfirmDelete shows the cascade warning before a delete.
func (h *EntityHandler[T, F]) ConfirmDelete(c *gin.Context) {
	id := c.Param("id")
	row, _, err := h.screen.Find(c.Request.Context(), h.session(c), id)
	if err != nil {
		if handleSessionExpired(c, err) {
			return
		}
		if response.WantsJSON(c) {
			response.Error(c, err)
			return
		}
		redirectWithFlash(c, "/"+h.Key(), FlashError, appErrors.UserMessage(err, h.screen.LoadFailureMessage()))
		return
	}

	def := h.screen.Definition()
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, gin.H{"record": row.Record, "warning": h.screen.ConfirmText()})
		return
	}
	data := page(c, "Delete "+def.Label, "/"+def.Key)
	name := id
	if len(def.Columns) > 0 {
		name = def.Columns[0].Value(row)
	}
	data["Page"] = gin.H{"Key": def.Key, "Label": def.Label, "ID": id, "Name": name, "Warning": h.screen.ConfirmText()}
	response.HTML(c, http.StatusOK, "confirm_delete.html", data)
}

// Delete godoc
// @Summary Delete an entity record
// @Description The request must carry confirm=yes
// @Tags Entities
// @Produce json
// @Param entity path string true "users, categories, subcategories or items"
// @Param id path string true "Record id"
// @Param confirm query string true "Must be yes"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /{entity}/{id} [delete]
func (h *EntityHandler[T, F]) Delete(c *gin.Context) {
	id := c.Param("id")
	confirmed := c.Query("confirm") == "yes" || c.PostForm("confirm") == "yes"
	err := h.screen.Delete(c.Request.Context(), h.session(c), id, confirmed)
	if err != nil {
		if handleSessionExpired(c, err) {
			return
		}
		if response.WantsJSON(c) {
			response.Error(c, err)
			return
		}
		if appErrors.HasCode(err, crud.ErrConfirmationRequired.Code) {
			c.Redirect(http.StatusSeeOther, fmt.Sprintf("/%s/%s/delete", h.Key(), id))
			return
		}
		redirectWithFlash(c, "/"+h.Key(), FlashError, appErrors.UserMessage(err, h.screen.FailureMessage("delete")))
		return
	}
	if response.WantsJSON(c) {
		response.NoContent(c)
		return
	}
	redirectWithFlash(c, "/"+h.Key(), FlashSuccess, h.screen.SuccessMessage(crud.ActionDelete))
}

// Export godoc
// @Summary Export the filtered list
// @Tags Entities
// @Produce text/csv
// @Produce application/pdf
// @Param entity path string true "users, categories, subcategories or items"
// @Param format query string false "csv or pdf"
// @Param q query string false "Case-insensitive filter"
// @Success 200 {file} file
// @Router /{entity}/export [get]
func (h *EntityHandler[T, F]) Export(c *gin.Context) {
	view, err := h.screen.List(c.Request.Context(), h.session(c), c.Query("q"))
	if err != nil {
		if handleSessionExpired(c, err) {
			return
		}
		renderError(c, err, h.screen.LoadFailureMessage())
		return
	}
	def := h.screen.Definition()
	file, err := h.exports.Render(def.Key, c.Query("format"), service.BuildTable(def.Title, def.Columns, view.Rows))
	if err != nil {
		renderError(c, err, "Failed to export "+def.Key)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *EntityHandler[T, F]) submitFailed(c *gin.Context, mode crud.Mode, id string, form F, err error) {
	if handleSessionExpired(c, err) {
		return
	}
	if response.WantsJSON(c) {
		response.Error(c, err)
		return
	}

	verb := "create"
	if mode == crud.ModeUpdate {
		verb = "update"
	}
	appErr := appErrors.FromError(err)
	message := ""
	if len(appErr.Fields) == 0 {
		message = appErrors.UserMessage(err, h.screen.FailureMessage(verb))
	}

	view, listErr := h.screen.List(c.Request.Context(), h.session(c), "")
	if listErr != nil && handleSessionExpired(c, listErr) {
		return
	}
	loadError := ""
	if listErr != nil {
		loadError = appErrors.UserMessage(listErr, h.screen.LoadFailureMessage())
	}
	dialog := h.dialog(mode, id, form, appErr.Fields, message, view.Lookups)
	h.render(c, statusOf(err), view, view.Rows, "", loadError, dialog)
}

func (h *EntityHandler[T, F]) dialog(mode crud.Mode, id string, form F, errs map[string]string, message string, lookups crud.Lookups) *dialogView {
	def := h.screen.Definition()
	d := &dialogView{
		Heading: "Add " + def.Label,
		Action:  "/" + def.Key,
		Submit:  "Create",
		Error:   message,
		Upload:  h.upload,
		Return:  "/" + def.Key + "?dialog=create",
	}
	if mode == crud.ModeUpdate {
		d.Heading = "Edit " + def.Label
		d.Action = fmt.Sprintf("/%s/%s", def.Key, id)
		d.Submit = "Update"
		d.Return = "/" + def.Key + "?edit=" + url.QueryEscape(id)
	}
	values := formValues(form)
	for _, f := range h.fields {
		fv := fieldView{Name: f.Name, Label: f.Label, Kind: f.Kind, Placeholder: f.Placeholder, Value: values[f.Name], Error: errs[f.Name]}
		if fv.Kind == "password" {
			fv.Value = ""
		}
		if f.Options != nil {
			fv.Options = f.Options(lookups)
		}
		d.Fields = append(d.Fields, fv)
	}
	return d
}

func (h *EntityHandler[T, F]) render(c *gin.Context, status int, view crud.ListView[T], rows []crud.Row[T], query, loadError string, dialog *dialogView) {
	def := h.screen.Definition()
	p := listPage{
		Key:        def.Key,
		Title:      def.Title,
		Label:      def.Label,
		Query:      query,
		Total:      view.Total,
		Submitting: view.Submitting,
		LoadError:  loadError,
		Dialog:     dialog,
	}
	for _, col := range def.Columns {
		p.Headers = append(p.Headers, col.Header)
	}
	for _, row := range rows {
		cells := make([]string, len(def.Columns))
		for i, col := range def.Columns {
			cells[i] = col.Value(row)
		}
		p.Rows = append(p.Rows, tableRow{ID: row.Record.EntityID(), Cells: cells})
	}

	data := page(c, def.Title, "/"+def.Key)
	data["Page"] = p
	response.HTML(c, status, "entity.html", data)
}

func findRow[T crud.Record](rows []crud.Row[T], id string) (crud.Row[T], bool) {
	for _, row := range rows {
		if row.Record.EntityID() == id {
			return row, true
		}
	}
	return crud.Row[T]{}, false
}

func records[T crud.Record](rows []crud.Row[T]) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record)
	}
	return out
}

// formValues flattens a form struct into its json-named string fields.
func formValues(form interface{}) map[string]string {
	raw, err := json.Marshal(form)
	if err != nil {
		return map[string]string{}
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
