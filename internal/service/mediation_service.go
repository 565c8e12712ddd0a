package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/castlemilk/pocketai/internal/extraction"
	"github.com/castlemilk/pocketai/internal/store"
	"go.uber.org/zap"
)

const (
	MinParticipants = 2
	MaxParticipants = 6
)

// RelationshipContexts lists the accepted relationship contexts.
var RelationshipContexts = []string{"family", "romantic", "workplace", "friends", "roommates"}

// ArgumentCategories lists the accepted conflict categories.
var ArgumentCategories = []string{
	"household",
	"financial",
	"time management",
	"responsibilities",
	"communication",
	"boundaries",
	"other",
}

// CreateSessionInput is the payload for starting a mediation session.
type CreateSessionInput struct {
	RelationshipContext string              `json:"relationshipContext"`
	ArgumentCategory    string              `json:"argumentCategory"`
	Participants        []store.Participant `json:"participants"`
}

// MediationService runs conflict mediation sessions.
type MediationService struct {
	deps Dependencies
}

func NewMediationService(deps Dependencies) *MediationService {
	return &MediationService{deps: deps.withDefaults()}
}

// Create validates the input and stores a new active session.
// Participants missing a name or perspective are dropped before counting.
func (s *MediationService) Create(ctx context.Context, in CreateSessionInput) (*store.Session, error) {
	relationship := normalizeChoice(in.RelationshipContext)
	if !slices.Contains(RelationshipContexts, relationship) {
		return nil, invalid("relationshipContext", "must be one of %s", strings.Join(RelationshipContexts, ", "))
	}
	category := normalizeChoice(in.ArgumentCategory)
	if !slices.Contains(ArgumentCategories, category) {
		return nil, invalid("argumentCategory", "must be one of %s", strings.Join(ArgumentCategories, ", "))
	}

	participants := make([]store.Participant, 0, len(in.Participants))
	for _, p := range in.Participants {
		p.Name = strings.TrimSpace(p.Name)
		p.Role = strings.TrimSpace(p.Role)
		p.Perspective = strings.TrimSpace(p.Perspective)
		if p.Name == "" || p.Perspective == "" {
			continue
		}
		participants = append(participants, p)
	}
	if len(participants) < MinParticipants {
		return nil, invalid("participants", "at least %d participants with a name and perspective are required", MinParticipants)
	}
	if len(participants) > MaxParticipants {
		return nil, invalid("participants", "at most %d participants are allowed", MaxParticipants)
	}

	session := &store.Session{
		RelationshipContext: relationship,
		ArgumentCategory:    category,
		Participants:        participants,
		ActionItems:         []string{},
		Status:              store.SessionStatusActive,
	}
	if err := s.deps.Store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.deps.Logger.Info("mediation session created",
		zap.Int("session_id", session.ID),
		zap.String("relationship", relationship),
		zap.String("category", category),
		zap.Int("participants", len(participants)))

	indexDocument(ctx, s.deps.Index, s.deps.Logger, sessionDocument(session))
	return session, nil
}

// Resolve asks Gemini for a mediated resolution and records it on the session.
// A resolved session can be resolved again; an archived one cannot.
func (s *MediationService) Resolve(ctx context.Context, id int) (*store.Session, error) {
	if s.deps.Generator == nil {
		return nil, errNotConfigured
	}

	session, err := s.deps.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == store.SessionStatusArchived {
		return nil, invalid("status", "session %d is archived", id)
	}

	text, err := s.deps.Generator.Generate(ctx, buildMediationPrompt(session))
	if err != nil {
		return nil, fmt.Errorf("resolve session %d: %w", id, err)
	}

	fields := extraction.Extract(text, extraction.MediationDirectives)
	score := fields.FairnessScore
	session.AIResolution = &text
	session.FairnessScore = &score
	session.ActionItems = fields.ActionItems
	session.Status = store.SessionStatusResolved

	if err := s.deps.Store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session %d: %w", id, err)
	}

	s.deps.Logger.Info("mediation session resolved",
		zap.Int("session_id", id),
		zap.Int("fairness_score", score),
		zap.Int("action_items", len(fields.ActionItems)))

	indexDocument(ctx, s.deps.Index, s.deps.Logger, sessionDocument(session))
	return session, nil
}

// UpdateStatus applies a client-requested status change. Only archiving is
// allowed here; resolution goes through Resolve.
func (s *MediationService) UpdateStatus(ctx context.Context, id int, status store.SessionStatus) (*store.Session, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown status %q", status)
	}
	if status != store.SessionStatusArchived {
		return nil, invalid("status", "sessions can only be archived, use resolve to resolve them")
	}

	session, err := s.deps.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == status {
		return session, nil
	}
	session.Status = status
	if err := s.deps.Store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session %d: %w", id, err)
	}
	return session, nil
}

// Get returns a single session.
func (s *MediationService) Get(ctx context.Context, id int) (*store.Session, error) {
	return s.deps.Store.GetSession(ctx, id)
}

// ListRecent returns the newest sessions first.
func (s *MediationService) ListRecent(ctx context.Context) ([]*store.Session, error) {
	return s.deps.Store.ListRecentSessions(ctx, s.deps.RecentLimit)
}

func normalizeChoice(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
