package scribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/metrics"
	"github.com/Gelzieny/tube-link-scribe/internal/youtube"
)

// Options configures a Service.
type Options struct {
	Repo       Repository
	Dispatcher Dispatcher
	Notifier   Notifier // optional
	Archive    Archive  // optional
	Messages   *i18n.Catalog
	CacheSize  int
	CacheTTL   time.Duration
	Log        zerolog.Logger
	Now        func() time.Time // defaults to time.Now
}

// Service owns the transcription lifecycle. Client-facing methods take the
// caller's user id and are owner-scoped; Complete and Fail are the worker's
// unscoped write-back path.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	notifier   Notifier
	archive    Archive
	msgs       *i18n.Catalog
	cache      *requestCache
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	msgs := opts.Messages
	if msgs == nil {
		msgs = i18n.New("")
	}
	return &Service{
		repo:       opts.Repo,
		dispatcher: opts.Dispatcher,
		notifier:   opts.Notifier,
		archive:    opts.Archive,
		msgs:       msgs,
		cache:      newRequestCache(opts.CacheSize, opts.CacheTTL),
		log:        opts.Log,
		now:        now,
	}
}

// SetDispatcher replaces the dispatcher. The in-process worker pool needs the
// service to exist before it can be built, so main wires it afterwards.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// Submit validates rawURL, creates a processing record owned by p and hands
// it to the worker.
func (s *Service) Submit(ctx context.Context, p *auth.Principal, rawURL string) (*Transcription, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !youtube.IsVideoURL(rawURL) {
		metrics.SubmissionsTotal.WithLabelValues("invalid_url").Inc()
		return nil, ErrInvalidURL
	}
	if s.dispatcher == nil {
		return nil, fmt.Errorf("%w: no dispatcher configured", ErrDispatch)
	}

	now := s.now().UTC()
	t := &Transcription{
		ID:        uuid.NewString(),
		UserID:    p.ID,
		VideoURL:  rawURL,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertTranscription(ctx, t); err != nil {
		return nil, fmt.Errorf("insert transcription: %w", err)
	}
	s.cache.invalidate(p.ID, "")
	s.notify(EventCreated, t)

	log := s.log.With().Str("transcription_id", t.ID).Str("user_id", p.ID).Logger()
	log.Info().Str("video_url", rawURL).Msg("transcription submitted")

	// Once dispatched the job runs to completion even if the caller goes away.
	err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), DispatchRequest{
		TranscriptionID: t.ID,
		VideoURL:        rawURL,
		Credential:      p.Token,
	})
	switch {
	case err == nil:
		metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
		// A remote worker writes back through another instance.
		s.cache.invalidate(p.ID, t.ID)
		return t, nil

	case errors.Is(err, ErrWorkerFailed):
		// The worker normally reconciles its own failures; this covers one
		// that died before writing back.
		metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
		log.Warn().Err(err).Msg("worker reported failure")
		if _, ferr := s.Fail(context.WithoutCancel(ctx), t.ID, s.msgs.Default().Sprintf(i18n.ProcessingFailed)); ferr != nil && !errors.Is(ferr, ErrTerminal) {
			log.Error().Err(ferr).Msg("failed to mark transcription failed")
		}
		return t, nil

	default:
		metrics.SubmissionsTotal.WithLabelValues("dispatch_error").Inc()
		log.Warn().Err(err).Msg("transcription dispatch failed")
		msg := s.msgs.Default().Sprintf(i18n.DispatchFailed, err.Error())
		if _, ferr := s.Fail(context.WithoutCancel(ctx), t.ID, msg); ferr != nil && !errors.Is(ferr, ErrTerminal) {
			log.Error().Err(ferr).Msg("failed to mark transcription failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrDispatch, err)
	}
}

// List returns the user's records, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Transcription, error) {
	if list, ok := s.cache.list(userID); ok {
		return list, nil
	}
	list, err := s.repo.ListTranscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	s.cache.putList(userID, list)
	return list, nil
}

// Search returns the user's records whose title or channel contain query.
func (s *Service) Search(ctx context.Context, userID, query string) ([]Transcription, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Filter(list, query), nil
}

// Get returns one record owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*Transcription, error) {
	if t, ok := s.cache.record(userID, id); ok {
		return t, nil
	}
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.cache.putRecord(t)
	return t, nil
}

// UpdateText replaces the transcript body. Status is never changed.
func (s *Service) UpdateText(ctx context.Context, userID, id, text string) (*Transcription, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	t, err := s.repo.UpdateTranscriptionText(ctx, id, userID, text)
	if err != nil {
		return nil, fmt.Errorf("update transcription: %w", err)
	}
	s.cache.invalidate(userID, id)
	s.notify(EventUpdated, t)
	if t.Status == StatusCompleted {
		s.archiveSave(ctx, t)
	}
	return t, nil
}

// Delete removes a record owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTranscription(ctx, id, userID); err != nil {
		return fmt.Errorf("delete transcription: %w", err)
	}
	s.cache.invalidate(userID, id)
	s.notify(EventDeleted, t)
	if s.archive != nil {
		if err := s.archive.Delete(ctx, userID, id); err != nil {
			s.log.Warn().Err(err).Str("transcription_id", id).Msg("archive delete failed")
		}
	}
	return nil
}

// Dashboard returns the summary projection of the user's records.
func (s *Service) Dashboard(ctx context.Context, userID string) (Summary, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(list, s.now()), nil
}

// Complete records a successful transcription. An empty text is replaced by
// the localized "not available" message so completed records always carry text.
func (s *Service) Complete(ctx context.Context, id string, res Result) (*Transcription, error) {
	if strings.TrimSpace(res.Text) == "" {
		res.Text = s.msgs.Default().Sprintf(i18n.TextUnavailable)
	}
	t, err := s.finish(ctx, id, StatusCompleted, res)
	if err != nil {
		return nil, err
	}
	s.archiveSave(ctx, t)
	return t, nil
}

// Fail records a failed transcription with message as its text.
func (s *Service) Fail(ctx context.Context, id, message string) (*Transcription, error) {
	return s.finish(ctx, id, StatusFailed, Result{Text: message})
}

func (s *Service) finish(ctx context.Context, id string, status Status, res Result) (*Transcription, error) {
	t, err := s.repo.FinishTranscription(ctx, id, status, res)
	if err != nil {
		return nil, err
	}
	s.cache.invalidate(t.UserID, t.ID)
	metrics.TranscriptionsFinishedTotal.WithLabelValues(string(status)).Inc()
	if status == StatusCompleted {
		s.notify(EventCompleted, t)
	} else {
		s.notify(EventFailed, t)
	}
	s.log.Info().
		Str("transcription_id", t.ID).
		Str("user_id", t.UserID).
		Str("status", string(status)).
		Msg("transcription finished")
	return t, nil
}

// StatusOf reads the current status of id from the repository, bypassing the
// cache. The worker uses it to skip records that are already finished.
func (s *Service) StatusOf(ctx context.Context, id string) (Status, error) {
	t, err := s.repo.GetTranscription(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// ProfileView is a profile together with the owner's record count.
type ProfileView struct {
	Profile
	TranscriptionCount int `json:"transcription_count"`
}

// Profile returns the caller's profile, creating it from token claims on
// first access.
func (s *Service) Profile(ctx context.Context, p *auth.Principal) (*ProfileView, error) {
	prof, err := s.repo.EnsureProfile(ctx, &Profile{
		ID:        uuid.NewString(),
		UserID:    p.ID,
		Name:      optional(p.Name),
		Email:     optional(p.Email),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	n, err := s.repo.CountTranscriptions(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count transcriptions: %w", err)
	}
	return &ProfileView{Profile: *prof, TranscriptionCount: n}, nil
}

// UpdateProfileName sets the caller's display name.
func (s *Service) UpdateProfileName(ctx context.Context, p *auth.Principal, name string) (*ProfileView, error) {
	if _, err := s.Profile(ctx, p); err != nil {
		return nil, err
	}
	if _, err := s.repo.UpdateProfileName(ctx, p.ID, strings.TrimSpace(name)); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Profile(ctx, p)
}

// owned loads id and checks that userID owns it.
func (s *Service) owned(ctx context.Context, userID, id string) (*Transcription, error) {
	t, err := s.repo.GetTranscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) notify(kind string, t *Transcription) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Event{
		Type:            kind,
		TranscriptionID: t.ID,
		UserID:          t.UserID,
		Status:          t.Status,
		Time:            s.now().UTC(),
	})
}

func (s *Service) archiveSave(ctx context.Context, t *Transcription) {
	if s.archive == nil || t.Text == nil {
		return
	}
	title := ""
	if t.Title != nil {
		title = *t.Title
	}
	if err := s.archive.Save(ctx, t.UserID, t.ID, title, *t.Text); err != nil {
		s.log.Warn().Err(err).Str("transcription_id", t.ID).Msg("archive save failed")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
