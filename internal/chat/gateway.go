package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	"github.com/google/uuid"
)

// Observer counts resolved chat calls by outcome.
type Observer interface {
	ObserveChat(outcome State)
}

type Gateway struct {
	client       *upstream.Client
	inflight     InFlight
	transcripts  *Transcripts
	publisher    events.Publisher
	observer     Observer
	logger       *slog.Logger
	defaultModel string
	now          func() time.Time
}

type Option func(*Gateway)

func WithPublisher(p events.Publisher) Option {
	return func(g *Gateway) {
		g.publisher = p
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		g.observer = o
	}
}

func WithDefaultModel(model string) Option {
	return func(g *Gateway) {
		if model != "" {
			g.defaultModel = model
		}
	}
}

func NewGateway(client *upstream.Client, inflight InFlight, transcripts *Transcripts, logger *slog.Logger, opts ...Option) *Gateway {
	if inflight == nil {
		inflight = NewMemoryInFlight()
	}
	if transcripts == nil {
		transcripts = NewTranscripts()
	}
	g := &Gateway{
		client:       client,
		inflight:     inflight,
		transcripts:  transcripts,
		logger:       logger,
		defaultModel: DefaultModelID,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ask sends query to the answering service on behalf of identity and
// returns the assistant entry. On failure the entry is still returned,
// carrying the text shown in the transcript, together with a *ServiceError
// or ErrUnavailable.
func (g *Gateway) Ask(ctx context.Context, identity session.Identity, query, modelID string) (Entry, error) {
	_, reply, err := g.Exchange(ctx, identity, query, modelID)
	return reply, err
}

// Exchange is Ask returning the question entry as well.
func (g *Gateway) Exchange(ctx context.Context, identity session.Identity, query, modelID string) (Entry, Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Entry{}, Entry{}, internal.NewValidationFieldError("query", "query is required", internal.ErrCodeValidationFailed)
	}
	if modelID = strings.TrimSpace(modelID); modelID == "" {
		modelID = g.defaultModel
	}

	lease, err := g.inflight.Begin(ctx, identity.ID)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	epoch := g.transcripts.Open(identity.ID, identity.ExpiresAt)

	question := g.entry(AuthorUser, query, nil)
	g.transcripts.Append(identity.ID, epoch, question)

	reply, err := g.call(ctx, identity, query, modelID)

	outcome := StateResolved
	if err != nil {
		outcome = StateFailed
	}
	if !g.transcripts.Append(identity.ID, epoch, reply) {
		g.logger.InfoContext(ctx, "session ended while the chat was pending, reply dropped")
	}
	// The caller may have gone away; the lock must still be released.
	if endErr := g.inflight.End(context.WithoutCancel(ctx), identity.ID, lease, outcome); endErr != nil {
		g.logger.ErrorContext(ctx, "failed to release chat lock", "error", endErr)
	}

	if g.observer != nil {
		g.observer.ObserveChat(outcome)
	}
	if err != nil {
		g.logger.WarnContext(ctx, "chat request failed", "model", modelID, "error", err)
		g.publishFailure(ctx, identity, modelID, err)
	}
	return question, reply, err
}

func (g *Gateway) call(ctx context.Context, identity session.Identity, query, modelID string) (Entry, error) {
	var resp answerResponse
	err := g.client.DoJSON(ctx, http.MethodPost, "/api/v1/chat", identity.Credential, answerRequest{
		Query:        queryBody{Query: query},
		ModelRequest: modelRequest{Model: modelID, UseHistory: true},
	}, &resp)
	if err != nil {
		if se, ok := upstream.AsStatusError(err); ok {
			serr := &ServiceError{Status: se.Status, Body: se.Body}
			return g.entry(AuthorAssistant, serr.Reply(), nil), serr
		}
		return g.entry(AuthorAssistant, unavailableReply, nil), errors.Join(ErrUnavailable, err)
	}

	text := resp.Answer
	if strings.TrimSpace(text) == "" {
		text = DeniedAnswer
	}
	return g.entry(AuthorAssistant, text, resp.SourceDocuments), nil
}

func (g *Gateway) entry(author Author, text string, sources []Source) Entry {
	if sources == nil {
		sources = []Source{}
	}
	return Entry{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Timestamp: g.now().UTC(),
		Sources:   sources,
	}
}

// Transcript returns the session's entries in request order.
func (g *Gateway) Transcript(sessionID string) []Entry {
	return g.transcripts.Entries(sessionID)
}

func (g *Gateway) State(ctx context.Context, sessionID string) (State, error) {
	return g.inflight.State(ctx, sessionID)
}

// Forget drops the transcript and request state of a session that ended.
func (g *Gateway) Forget(ctx context.Context, sessionID string) error {
	g.transcripts.Drop(sessionID)
	return g.inflight.Forget(ctx, sessionID)
}

// Models lists the models offered by the answering service, falling back to
// the default list on any failure.
func (g *Gateway) Models(ctx context.Context, identity session.Identity) []Model {
	var models []Model
	if err := g.client.DoJSON(ctx, http.MethodGet, "/api/v1/models", identity.Credential, nil, &models); err != nil {
		g.logger.WarnContext(ctx, "model listing failed, using defaults", "error", err)
		return DefaultModels()
	}
	if len(models) == 0 {
		return DefaultModels()
	}
	return models
}

// Sweep forgets every session whose transcript has expired and returns how
// many were dropped.
func (g *Gateway) Sweep(ctx context.Context) int {
	expired := g.transcripts.Expired()
	for _, id := range expired {
		if err := g.inflight.Forget(ctx, id); err != nil {
			g.logger.WarnContext(ctx, "failed to forget expired chat session", "error", err)
		}
	}
	if len(expired) > 0 {
		g.logger.DebugContext(ctx, "expired chat sessions dropped", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done.
func (g *Gateway) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep(ctx)
		}
	}
}

// HandleLogout is an event handler that forgets the session on logout.
func (g *Gateway) HandleLogout(ctx context.Context, event events.Event) error {
	ae, ok := event.(*events.AccessEvent)
	if !ok || ae.SessionID == "" {
		return nil
	}
	return g.Forget(ctx, ae.SessionID)
}

func (g *Gateway) publishFailure(ctx context.Context, identity session.Identity, modelID string, err error) {
	if g.publisher == nil {
		return
	}
	detail := "unavailable"
	var serr *ServiceError
	if errors.As(err, &serr) {
		detail = http.StatusText(serr.Status)
	}
	if perr := g.publisher.Publish(ctx, events.NewAccessEvent(
		events.EventTypeChatFailed, identity.ID, identity.Username, string(identity.Role),
		modelID, events.OutcomeFailure, detail,
	)); perr != nil {
		g.logger.ErrorContext(ctx, "failed to publish chat event", "error", perr)
	}
}
