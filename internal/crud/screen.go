// Package crud implements the list, filter, create, edit and delete flow
// shared by every entity screen of the console. One Screen is instantiated
// per entity from a Definition.
package crud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

// Record is implemented by every entity the console manages.
type Record interface {
	EntityID() string
	Created() time.Time
}

// Resource is the slice of the REST client a screen needs.
type Resource[T any] interface {
	List(ctx context.Context, creds apiclient.Credentials) ([]T, error)
	Get(ctx context.Context, creds apiclient.Credentials, id string) (T, error)
	Create(ctx context.Context, creds apiclient.Credentials, payload apiclient.Payload) (T, error)
	Update(ctx context.Context, creds apiclient.Credentials, id string, payload apiclient.Payload) (T, error)
	Delete(ctx context.Context, creds apiclient.Credentials, id string) error
}

// Session is the signed-in caller of a screen operation.
type Session interface {
	apiclient.Credentials
	SessionID() string
}

// Mode distinguishes create from edit submissions.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// Action names a completed mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var pastTense = map[Action]string{ActionCreate: "created", ActionUpdate: "updated", ActionDelete: "deleted"}

// Mutation describes a confirmed change. Record is the stored record after a
// create or update and the removed record on delete. Previous is the record as
// read before an update or delete; both are nil when that read failed.
type Mutation[T any] struct {
	Action   Action
	ID       string
	Record   *T
	Previous *T
}

// Column is one exported or tabulated attribute.
type Column[T Record] struct {
	Header string
	Value  func(Row[T]) string
}

// ErrConfirmationRequired rejects deletes that were not explicitly confirmed.
var ErrConfirmationRequired = appErrors.New("CONFIRMATION_REQUIRED", http.StatusBadRequest, "Deletion must be confirmed")

// Definition parameterises a Screen for one entity.
type Definition[T Record, F any] struct {
	// Key is the URL segment, e.g. "categories".
	Key string
	// Title is the plural heading, e.g. "Categories".
	Title string
	// Label is the singular display name, e.g. "Category".
	Label    string
	Resource Resource[T]
	// Validate checks a submitted form for the given mode.
	Validate func(form F, mode Mode) error
	// CheckReferences rejects forms whose parent ids do not exist upstream.
	CheckReferences func(ctx context.Context, creds apiclient.Credentials, form F) error
	// ToWire maps view-model fields to the API payload.
	ToWire func(form F, mode Mode) apiclient.Payload
	// Prefill builds the edit form for a record.
	Prefill func(record T) F
	// Labels resolves foreign keys to display names.
	Labels func(record T, lookups Lookups) map[string]string
	// SearchText lists the strings the filter matches against.
	SearchText func(record T, labels map[string]string) []string
	// LoadLookups fetches the parent collections used by Labels.
	LoadLookups func(ctx context.Context, creds apiclient.Credentials) Lookups
	// DeleteWarning is the confirmation text, including any cascade.
	DeleteWarning string
	// ResolvePrevious reads the record before updating or deleting so
	// observers see the prior state.
	ResolvePrevious bool
	Columns         []Column[T]
}

// ListView is a filtered, sorted snapshot of one screen.
type ListView[T Record] struct {
	Rows       []Row[T]
	Total      int
	Query      string
	Lookups    Lookups
	Submitting bool
}

// Screen runs the entity flow for one Definition.
type Screen[T Record, F any] struct {
	def       Definition[T, F]
	inflight  *Inflight
	logger    *zap.Logger
	observers []func(ctx context.Context, m Mutation[T])
}

// NewScreen constructs a screen.
func NewScreen[T Record, F any](def Definition[T, F], inflight *Inflight, logger *zap.Logger) *Screen[T, F] {
	if inflight == nil {
		inflight = NewInflight()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screen[T, F]{def: def, inflight: inflight, logger: logger.With(zap.String("screen", def.Key))}
}

// Observe registers a callback invoked after every confirmed mutation.
func (s *Screen[T, F]) Observe(fn func(ctx context.Context, m Mutation[T])) {
	s.observers = append(s.observers, fn)
}

// Definition returns the screen's definition.
func (s *Screen[T, F]) Definition() Definition[T, F] {
	return s.def
}

// List fetches the collection, resolves references, filters by query and
// sorts newest first. Parent lookups that fail resolve to placeholders.
func (s *Screen[T, F]) List(ctx context.Context, sess Session, query string) (ListView[T], error) {
	view := ListView[T]{Query: strings.TrimSpace(query), Submitting: s.inflight.Active(s.key(sess))}

	type lookupResult struct{ lookups Lookups }
	lookupCh := make(chan lookupResult, 1)
	go func() {
		var l Lookups
		if s.def.LoadLookups != nil {
			l = s.def.LoadLookups(ctx, sess)
		}
		lookupCh <- lookupResult{lookups: l}
	}()

	records, err := s.def.Resource.List(ctx, sess)
	lookups := (<-lookupCh).lookups
	if err != nil {
		return view, err
	}

	rows := make([]Row[T], 0, len(records))
	for _, record := range records {
		rows = append(rows, s.row(record, lookups))
	}
	SortNewestFirst(rows)

	view.Lookups = lookups
	view.Total = len(rows)
	view.Rows = Filter(rows, view.Query)
	return view, nil
}

// Find returns the record with id from a fresh listing.
func (s *Screen[T, F]) Find(ctx context.Context, sess Session, id string) (Row[T], Lookups, error) {
	view, err := s.List(ctx, sess, "")
	if err != nil {
		return Row[T]{}, Lookups{}, err
	}
	for _, row := range view.Rows {
		if row.Record.EntityID() == id {
			return row, view.Lookups, nil
		}
	}
	return Row[T]{}, view.Lookups, appErrors.Clone(appErrors.ErrNotFound, s.def.Label+" not found")
}

// Prefill returns the edit form for record.
func (s *Screen[T, F]) Prefill(record T) F {
	return s.def.Prefill(record)
}

// Create validates form and creates the record.
func (s *Screen[T, F]) Create(ctx context.Context, sess Session, form F) (T, error) {
	return s.submit(ctx, sess, ModeCreate, "", form)
}

// Update validates form and updates record id.
func (s *Screen[T, F]) Update(ctx context.Context, sess Session, id string, form F) (T, error) {
	return s.submit(ctx, sess, ModeUpdate, id, form)
}

func (s *Screen[T, F]) submit(ctx context.Context, sess Session, mode Mode, id string, form F) (T, error) {
	var zero T
	if err := s.def.Validate(form, mode); err != nil {
		return zero, err
	}

	release, ok := s.inflight.Begin(s.key(sess))
	if !ok {
		return zero, appErrors.Clone(appErrors.ErrBusy, "")
	}
	defer release()

	if s.def.CheckReferences != nil {
		if err := s.def.CheckReferences(ctx, sess, form); err != nil {
			return zero, err
		}
	}

	var previous *T
	if mode == ModeUpdate {
		var err error
		if previous, err = s.previous(ctx, sess, id); err != nil {
			return zero, err
		}
	}

	payload := s.def.ToWire(form, mode)
	var (
		record T
		err    error
		action = ActionCreate
	)
	if mode == ModeCreate {
		record, err = s.def.Resource.Create(ctx, sess, payload)
	} else {
		action = ActionUpdate
		record, err = s.def.Resource.Update(ctx, sess, id, payload)
	}
	if err != nil {
		s.logger.Warn("submit failed", zap.String("action", string(action)), zap.String("id", id), zap.Error(err))
		return zero, err
	}
	if id == "" {
		id = record.EntityID()
	}
	s.notify(ctx, Mutation[T]{Action: action, ID: id, Record: &record, Previous: previous})
	return record, nil
}

// ConfirmText returns the confirmation prompt shown before deleting.
func (s *Screen[T, F]) ConfirmText() string {
	return s.def.DeleteWarning
}

// Delete removes record id once the caller has confirmed.
func (s *Screen[T, F]) Delete(ctx context.Context, sess Session, id string, confirmed bool) error {
	if !confirmed {
		return appErrors.Clone(ErrConfirmationRequired, "")
	}

	release, ok := s.inflight.Begin(s.key(sess))
	if !ok {
		return appErrors.Clone(appErrors.ErrBusy, "")
	}
	defer release()

	before, err := s.previous(ctx, sess, id)
	if err != nil {
		return err
	}

	if err := s.def.Resource.Delete(ctx, sess, id); err != nil {
		s.logger.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.notify(ctx, Mutation[T]{Action: ActionDelete, ID: id, Record: before, Previous: before})
	return nil
}

// previous reads record id when the definition asks for prior state. Only an
// expired session aborts the mutation.
func (s *Screen[T, F]) previous(ctx context.Context, sess Session, id string) (*T, error) {
	if !s.def.ResolvePrevious {
		return nil, nil
	}
	record, err := s.def.Resource.Get(ctx, sess, id)
	if err == nil {
		return &record, nil
	}
	if appErrors.HasCode(err, appErrors.ErrSessionExpired.Code) {
		return nil, err
	}
	s.logger.Debug("could not read record before mutation", zap.String("id", id), zap.Error(err))
	return nil, nil
}

// SuccessMessage is the notification shown after action succeeds.
func (s *Screen[T, F]) SuccessMessage(action Action) string {
	return fmt.Sprintf("%s %s successfully!", s.def.Label, pastTense[action])
}

// FailureMessage is the fallback notification when the API gave no message.
func (s *Screen[T, F]) FailureMessage(verb string) string {
	return fmt.Sprintf("Failed to %s %s", verb, strings.ToLower(s.def.Label))
}

// LoadFailureMessage is shown when the collection cannot be fetched.
func (s *Screen[T, F]) LoadFailureMessage() string {
	return "Failed to load " + strings.ToLower(s.def.Title)
}

func (s *Screen[T, F]) row(record T, lookups Lookups) Row[T] {
	var labels map[string]string
	if s.def.Labels != nil {
		labels = s.def.Labels(record, lookups)
	}
	return newRow(record, labels, s.def.SearchText(record, labels))
}

func (s *Screen[T, F]) notify(ctx context.Context, m Mutation[T]) {
	for _, fn := range s.observers {
		fn(ctx, m)
	}
}

func (s *Screen[T, F]) key(sess Session) string {
	return sess.SessionID() + ":" + s.def.Key
}
