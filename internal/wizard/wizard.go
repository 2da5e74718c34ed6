// Package wizard implements the six-step financing application: per-step
// validation, document slots, and submission on the last step.
//
// Sessions are loaded from a Store at the start of each operation and saved
// at the end; a session is driven by one request at a time.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/storage"
	"github.com/google/uuid"
)

// Document is a filled document slot. URL is empty while uploading.
type Document struct {
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	URL         string `json:"url,omitempty"`
}

// State is one applicant's progress through the wizard.
type State struct {
	ID        string                            `json:"id"`
	Step      Step                              `json:"step"`
	Values    map[string]string                 `json:"values"`
	Documents map[domain.DocumentType]*Document `json:"documents"`
	CreatedAt time.Time                         `json:"created_at"`
	UpdatedAt time.Time                         `json:"updated_at"`
}

func newState() *State {
	now := time.Now().UTC()
	return &State{
		ID:        uuid.New().String(),
		Step:      StepDocuments,
		Values:    make(map[string]string),
		Documents: make(map[domain.DocumentType]*Document),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// reset returns the state to step 0 with nothing filled in.
func (st *State) reset() {
	st.Step = StepDocuments
	st.Values = make(map[string]string)
	st.Documents = make(map[domain.DocumentType]*Document)
}

// missingDocuments lists the slots without a file.
func (st *State) missingDocuments() []domain.DocumentType {
	var missing []domain.DocumentType
	for _, d := range domain.RequiredDocuments {
		if st.Documents[d] == nil {
			missing = append(missing, d)
		}
	}
	return missing
}

// Outcome is the result kind of Next.
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
)

// Result describes what Next did.
type Result struct {
	Outcome   Outcome      `json:"outcome"`
	Step      Step         `json:"step"`
	Errors    []FieldError `json:"errors,omitempty"`
	Message   string       `json:"message,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	State     *State       `json:"state"`
}

// Submitter persists a completed application and returns the request id.
type Submitter interface {
	SubmitFinancing(ctx context.Context, app domain.FinancingApplication) (string, error)
}

// Uploader stores document files.
type Uploader interface {
	Upload(ctx context.Context, bucket, prefix string, f storage.File) (*storage.Object, error)
}

var (
	ErrUnknownDocument = errors.New("unknown document type")
	ErrInvalidSession  = errors.New("invalid wizard session id")
)

// Messages shown to the applicant after submission.
const (
	MsgSubmitted    = "Your financing request was sent. We will contact you soon."
	MsgSubmitFailed = "We could not send your financing request. Please try again."
	MsgMissingDocs  = "Attach all required documents before continuing."
)

// Wizard drives financing sessions.
type Wizard struct {
	store     Store
	validator *Validator
	uploader  Uploader
	submitter Submitter
	bucket    string
}

// New builds a Wizard. bucket is where documents are uploaded.
func New(store Store, validator *Validator, uploader Uploader, submitter Submitter, bucket string) *Wizard {
	if bucket == "" {
		bucket = storage.BucketFinancingDocs
	}
	return &Wizard{
		store:     store,
		validator: validator,
		uploader:  uploader,
		submitter: submitter,
		bucket:    bucket,
	}
}

// Start opens a new session at step 0.
func (w *Wizard) Start(ctx context.Context) (*State, error) {
	st := newState()
	if err := w.store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Get loads a session.
func (w *Wizard) Get(ctx context.Context, id string) (*State, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidSession
	}
	return w.store.Load(ctx, id)
}

// Discard deletes a session.
func (w *Wizard) Discard(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidSession
	}
	return w.store.Delete(ctx, id)
}

// SetValues merges form values into the session. Every key must be a
// registered field; values are trimmed. Nothing is merged if a key is unknown.
func (w *Wizard) SetValues(ctx context.Context, id string, values map[string]string) (*State, error) {
	st, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for k := range values {
		if _, ok := domain.LookupField(k); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, k)
		}
	}
	for k, v := range values {
		st.Values[k] = strings.TrimSpace(v)
	}
	return st, w.save(ctx, st)
}

// AttachDocument fills a document slot and uploads the file. The slot is
// cleared when the upload fails and the upload error is returned as is.
// Re-attaching uploads again and replaces the URL.
func (w *Wizard) AttachDocument(ctx context.Context, id string, doc domain.DocumentType, f storage.File) (*State, error) {
	if !doc.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
	}
	st, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	slot := &Document{FileName: f.Name, Size: f.Size, ContentType: f.ContentType}
	st.Documents[doc] = slot

	obj, err := w.uploader.Upload(ctx, w.bucket, string(doc), f)
	if err != nil {
		delete(st.Documents, doc)
		if saveErr := w.save(ctx, st); saveErr != nil {
			slog.Warn("wizard session not saved after failed upload", "session_id", id, "error", saveErr)
		}
		return st, err
	}

	slot.URL = obj.URL
	return st, w.save(ctx, st)
}

// Back moves one step back, stopping at step 0. Values are kept.
func (w *Wizard) Back(ctx context.Context, id string) (*State, error) {
	st, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Step > StepDocuments {
		st.Step--
	}
	return st, w.save(ctx, st)
}

// Next validates the current step and advances, or submits on the last step.
func (w *Wizard) Next(ctx context.Context, id string) (*Result, error) {
	st, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := w.advance(ctx, st)
	if err := w.save(ctx, st); err != nil {
		return nil, err
	}
	return res, nil
}

func (w *Wizard) advance(ctx context.Context, st *State) *Result {
	switch {
	case st.Step == StepDocuments:
		if missing := st.missingDocuments(); len(missing) > 0 {
			errs := make([]FieldError, len(missing))
			for i, d := range missing {
				errs[i] = FieldError{Field: string(d), Message: MsgMissingDocs}
			}
			return blocked(st, errs)
		}

	case st.Step < LastStep:
		if errs := w.validator.ValidateStep(st.Step, st.Values); len(errs) > 0 {
			return blocked(st, errs)
		}

	default:
		return w.submit(ctx, st)
	}

	st.Step++
	return &Result{Outcome: OutcomeAdvanced, Step: st.Step, State: st}
}

func (w *Wizard) submit(ctx context.Context, st *State) *Result {
	if errs := w.validator.ValidateStep(st.Step, st.Values); len(errs) > 0 {
		return blocked(st, errs)
	}
	errs := w.validator.ValidateAll(st.Values)
	for _, d := range domain.RequiredDocuments {
		if doc := st.Documents[d]; doc == nil || doc.URL == "" {
			errs = append(errs, FieldError{Field: string(d), Message: MsgMissingDocs})
		}
	}
	if len(errs) > 0 {
		return blocked(st, errs)
	}

	app := domain.FinancingApplication{
		Fields:    make(map[string]string, len(st.Values)),
		Documents: make(map[domain.DocumentType]string, len(st.Documents)),
	}
	for k, v := range st.Values {
		app.Fields[k] = v
	}
	for d, doc := range st.Documents {
		app.Documents[d] = doc.URL
	}

	requestID, err := w.submitter.SubmitFinancing(ctx, app)
	if err != nil {
		slog.Error("financing submission failed", "session_id", st.ID, "error", err)
		return &Result{Outcome: OutcomeFailed, Step: st.Step, Message: MsgSubmitFailed, State: st}
	}

	st.reset()
	return &Result{
		Outcome:   OutcomeSubmitted,
		Step:      st.Step,
		Message:   MsgSubmitted,
		RequestID: requestID,
		State:     st,
	}
}

func blocked(st *State, errs []FieldError) *Result {
	return &Result{Outcome: OutcomeBlocked, Step: st.Step, Errors: errs, State: st}
}

func (w *Wizard) save(ctx context.Context, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	return w.store.Save(ctx, st)
}
