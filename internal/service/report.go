package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reportapi/internal/crypto"
	"reportapi/internal/keylock"
	"reportapi/internal/logger"
	"reportapi/internal/model"
	"reportapi/internal/render"
	"reportapi/internal/repository"
	"reportapi/internal/storage"
)

// Outcome names the branch a resolution took.
type Outcome string

const (
	OutcomeGenerated   Outcome = "generated"
	OutcomeRegenerated Outcome = "regenerated"
	OutcomeReused      Outcome = "reused"
)

const (
	sealedContentType = "application/octet-stream"
	outcomeFailed     = "failed"
)

// ResolveRequest asks for the report of one application.
// UserID, when set, must own the application.
type ResolveRequest struct {
	ApplicationID int64
	UserID        string
	Template      string
	Payload       map[string]any
}

// ResolveResult is the plaintext document plus how it was obtained.
type ResolveResult struct {
	Document    []byte
	Outcome     Outcome
	ReportID    string
	GeneratedAt time.Time
}

// ReportService decides between generating, regenerating and reusing the
// encrypted report of an application.
type ReportService interface {
	// Resolve returns the current report document of an application, rendering
	// and storing a new encrypted copy only when none exists or the stored one is stale.
	Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error)

	// DecryptPayload returns the form payload the current report was rendered from.
	// userID follows the same ownership rule as ResolveRequest.UserID.
	DecryptPayload(ctx context.Context, applicationID int64, userID string) ([]byte, error)
}

// Option customises a ReportService.
type Option func(*reportService)

// WithMetrics records resolutions on m.
func WithMetrics(m *Metrics) Option {
	return func(s *reportService) { s.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *reportService) { s.now = now }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *reportService) { s.tracer = t }
}

type reportService struct {
	store     repository.Store
	objects   storage.Storage
	encryptor crypto.Encryptor
	renderer  render.Renderer
	log       *logger.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	now       func() time.Time
	locks     *keylock.Locker[int64]
}

// NewReportService constructs a ReportService.
func NewReportService(
	store repository.Store,
	objects storage.Storage,
	encryptor crypto.Encryptor,
	renderer render.Renderer,
	log *logger.Logger,
	opts ...Option,
) ReportService {
	s := &reportService{
		store:     store,
		objects:   objects,
		encryptor: encryptor,
		renderer:  renderer,
		log:       log,
		tracer:    otel.Tracer("reportapi/internal/service"),
		now:       time.Now,
		locks:     keylock.New[int64](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reportService) Resolve(ctx context.Context, req ResolveRequest) (res *ResolveResult, err error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.Resolve",
		trace.WithAttributes(attribute.Int64("application.id", req.ApplicationID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.resolved(outcomeFailed)
			s.logFailure(req.ApplicationID, err)
		} else {
			span.SetAttributes(attribute.String("report.outcome", string(res.Outcome)))
			s.metrics.resolved(string(res.Outcome))
		}
		span.End()
	}()

	if _, err := s.loadApplication(ctx, req.ApplicationID, req.UserID); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock: another request may have just printed.
	app, err := s.loadApplication(ctx, req.ApplicationID, req.UserID)
	if err != nil {
		return nil, err
	}

	report, err := s.currentReport(ctx, app)
	if err != nil {
		return nil, err
	}

	switch {
	case report == nil:
		return s.generate(ctx, app, nil, req)
	case app.IsStale():
		return s.generate(ctx, app, report, req)
	default:
		return s.reuse(ctx, app, report)
	}
}

func (s *reportService) DecryptPayload(ctx context.Context, applicationID int64, userID string) ([]byte, error) {
	unlock, err := s.locks.Lock(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.loadApplication(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	report, err := s.currentReport(ctx, app)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	return s.open(ctx, applicationID, "payload", report.PayloadObject, report.PayloadKeyID)
}

func (s *reportService) loadApplication(ctx context.Context, id int64, userID string) (*model.Application, error) {
	app, err := s.store.Applications().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, &StoreError{Op: "load application", ApplicationID: id, Err: err}
	}
	if userID != "" && app.UserID != userID {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

// currentReport returns the referenced report, or nil when there is no
// reference or the referenced row is gone.
func (s *reportService) currentReport(ctx context.Context, app *model.Application) (*model.PreparedReport, error) {
	if !app.HasReport() {
		return nil, nil
	}
	report, err := s.store.PreparedReports().FindByID(ctx, *app.PreparedReportID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().
				Int64("application_id", app.ID).
				Str("report_id", *app.PreparedReportID).
				Msg("application references a missing report; generating a new one")
			return nil, nil
		}
		return nil, &StoreError{Op: "load report", ApplicationID: app.ID, Err: err}
	}
	return report, nil
}

// generate renders, encrypts and stores a new report. With prev set the
// existing row is updated in place and keeps its id.
func (s *reportService) generate(ctx context.Context, app *model.Application, prev *model.PreparedReport, req ResolveRequest) (*ResolveResult, error) {
	outcome := OutcomeGenerated
	reportID := uuid.NewString()
	if prev != nil {
		outcome = OutcomeRegenerated
		reportID = prev.ID
	}

	start := time.Now()
	document, err := s.renderer.Render(ctx, req.Template, req.Payload)
	s.metrics.rendered(time.Since(start))
	if err != nil {
		return nil, &RenderError{Op: "render " + req.Template, ApplicationID: app.ID, Err: err}
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, &RenderError{Op: "encode payload", ApplicationID: app.ID, Err: err}
	}

	documentKeyID, documentCT, err := s.encryptor.Encrypt(ctx, document)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt document", ApplicationID: app.ID, Err: err}
	}
	payloadKeyID, payloadCT, err := s.encryptor.Encrypt(ctx, payload)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt payload", ApplicationID: app.ID, Err: err}
	}

	now := s.timestamp()
	generation := uuid.NewString()
	next := &model.PreparedReport{
		ID:             reportID,
		DocumentKeyID:  documentKeyID,
		PayloadKeyID:   payloadKeyID,
		DocumentObject: documentObjectKey(reportID, generation),
		PayloadObject:  payloadObjectKey(reportID, generation),
		CreatedDate:    now,
	}

	if err := s.upload(ctx, next.DocumentObject, documentKeyID, documentCT); err != nil {
		return nil, &StoreError{Op: "upload document", ApplicationID: app.ID, Err: err}
	}
	if err := s.upload(ctx, next.PayloadObject, payloadKeyID, payloadCT); err != nil {
		s.discardObjects(ctx, app.ID, next.DocumentObject)
		return nil, &StoreError{Op: "upload payload", ApplicationID: app.ID, Err: err}
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if prev == nil {
			if err := tx.PreparedReports().Create(ctx, next); err != nil {
				return err
			}
		} else if err := tx.PreparedReports().Update(ctx, next); err != nil {
			return err
		}
		return tx.Applications().UpdateReportState(ctx, app.ID, reportID, now, repository.SnapshotOf(app))
	})
	if err != nil {
		s.discardObjects(ctx, app.ID, next.DocumentObject, next.PayloadObject)
		return nil, &StoreError{Op: "persist report", ApplicationID: app.ID, Err: err}
	}

	if prev != nil {
		s.discardObjects(ctx, app.ID, prev.DocumentObject, prev.PayloadObject)
	}

	s.log.Info().
		Int64("application_id", app.ID).
		Str("report_id", reportID).
		Str("outcome", string(outcome)).
		Str("document_key_id", documentKeyID).
		Msg("report stored")

	return &ResolveResult{Document: document, Outcome: outcome, ReportID: reportID, GeneratedAt: now}, nil
}

// reuse decrypts the stored document and refreshes last_printed.
func (s *reportService) reuse(ctx context.Context, app *model.Application, report *model.PreparedReport) (*ResolveResult, error) {
	document, err := s.open(ctx, app.ID, "document", report.DocumentObject, report.DocumentKeyID)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	// Another reader refreshing last_printed does not invalidate this read;
	// only a content change or a swapped report does.
	if err := s.store.Applications().TouchPrinted(ctx, app.ID, report.ID, now, app.LastUpdated); err != nil {
		return nil, &StoreError{Op: "refresh last printed", ApplicationID: app.ID, Err: err}
	}

	return &ResolveResult{Document: document, Outcome: OutcomeReused, ReportID: report.ID, GeneratedAt: report.CreatedDate}, nil
}

func (s *reportService) upload(ctx context.Context, key, keyID string, sealed []byte) error {
	_, err := s.objects.Put(ctx, key, sealed, storage.PutOptions{
		ContentType: sealedContentType,
		KeyID:       keyID,
	})
	return err
}

// open reads one sealed blob and decrypts it with the key id recorded on the
// report row. Blobs written without a key tag are accepted as is.
func (s *reportService) open(ctx context.Context, applicationID int64, what, key, keyID string) ([]byte, error) {
	sealed, info, err := storage.ReadAll(ctx, s.objects, key)
	if err != nil {
		return nil, &StoreError{Op: "read " + what, ApplicationID: applicationID, Err: err}
	}
	if info.KeyID != "" && info.KeyID != keyID {
		return nil, &CryptoError{
			Op:            "decrypt " + what,
			ApplicationID: applicationID,
			Err:           fmt.Errorf("%w: object %s sealed with %q, report names %q", ErrKeyMismatch, key, info.KeyID, keyID),
		}
	}
	plain, err := s.encryptor.Decrypt(ctx, keyID, sealed)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt " + what, ApplicationID: applicationID, Err: err}
	}
	return plain, nil
}

// discardObjects deletes blobs that are no longer referenced. Failures only
// leave orphans behind, so they are logged and not returned.
func (s *reportService) discardObjects(ctx context.Context, applicationID int64, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).
				Int64("application_id", applicationID).
				Str("object", key).
				Msg("failed to delete report object")
		}
	}
}

// timestamp is truncated to the database's microsecond precision so values
// read back compare equal to the ones written.
func (s *reportService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *reportService) logFailure(applicationID int64, err error) {
	if errors.Is(err, ErrApplicationNotFound) {
		s.log.Info().Int64("application_id", applicationID).Msg("report requested for unknown application")
		return
	}

	ev := s.log.Error().Err(err).Int64("application_id", applicationID)
	var (
		renderErr *RenderError
		cryptoErr *CryptoError
		storeErr  *StoreError
	)
	switch {
	case errors.As(err, &renderErr):
		ev = ev.Str("kind", "render").Str("op", renderErr.Op)
	case errors.As(err, &cryptoErr):
		ev = ev.Str("kind", "crypto").Str("op", cryptoErr.Op)
	case errors.As(err, &storeErr):
		ev = ev.Str("kind", "store").Str("op", storeErr.Op)
	}
	ev.Msg("report resolution failed")
}
