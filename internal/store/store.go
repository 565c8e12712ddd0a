package store

import (
	"context"
	"errors"
	"slices"
	"time"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// DefaultRecentLimit is how many records the recent-history queries return
// when the caller passes a non-positive limit.
const DefaultRecentLimit = 10

// ErrNotFound is returned when a record with the requested ID does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all persistence operations used by the services.
// Create methods assign the ID and CreatedAt of the record they are given.
type Store interface {
	// Scan operations
	CreateScan(ctx context.Context, scan *Scan) error
	GetScan(ctx context.Context, id int) (*Scan, error)
	ListRecentScans(ctx context.Context, limit int) ([]*Scan, error)

	// Mediation session operations
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id int) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	ListRecentSessions(ctx context.Context, limit int) ([]*Session, error)
}

// Scan is one analyzed food photo.
type Scan struct {
	ID         int       `json:"id" firestore:"id"`
	FoodName   string    `json:"foodName" firestore:"foodName"`
	IsVegan    bool      `json:"isVegan" firestore:"isVegan"`
	Analysis   string    `json:"analysis" firestore:"analysis"`
	Confidence int       `json:"confidence" firestore:"confidence"`
	ImageURL   *string   `json:"imageUrl" firestore:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

// Participant is one side of a mediated conflict.
type Participant struct {
	Name        string `json:"name" firestore:"name"`
	Role        string `json:"role,omitempty" firestore:"role,omitempty"`
	Perspective string `json:"perspective" firestore:"perspective"`
}

// SessionStatus is the lifecycle state of a mediation session.
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusResolved SessionStatus = "resolved"
	SessionStatusArchived SessionStatus = "archived"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusResolved, SessionStatusArchived:
		return true
	}
	return false
}

// Session is a conflict mediation session.
type Session struct {
	ID                  int           `json:"id" firestore:"id"`
	RelationshipContext string        `json:"relationshipContext" firestore:"relationshipContext"`
	ArgumentCategory    string        `json:"argumentCategory" firestore:"argumentCategory"`
	Participants        []Participant `json:"participants" firestore:"participants"`
	AIResolution        *string       `json:"aiResolution" firestore:"aiResolution"`
	ActionItems         []string      `json:"actionItems" firestore:"actionItems"`
	FairnessScore       *int          `json:"fairnessScore" firestore:"fairnessScore"`
	Status              SessionStatus `json:"status" firestore:"status"`
	CreatedAt           time.Time     `json:"createdAt" firestore:"createdAt"`
}

func (s *Scan) clone() *Scan {
	c := *s
	if s.ImageURL != nil {
		u := *s.ImageURL
		c.ImageURL = &u
	}
	return &c
}

func (s *Session) clone() *Session {
	c := *s
	c.Participants = slices.Clone(s.Participants)
	c.ActionItems = slices.Clone(s.ActionItems)
	if s.AIResolution != nil {
		r := *s.AIResolution
		c.AIResolution = &r
	}
	if s.FairnessScore != nil {
		f := *s.FairnessScore
		c.FairnessScore = &f
	}
	return &c
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
