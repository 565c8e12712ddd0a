package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	scansCollection    = "scans"
	sessionsCollection = "sessions"
	countersCollection = "counters"
)

// FirestoreStore implements the Store interface using Firestore.
// Integer IDs come from a per-collection counter document updated in the
// same transaction that writes the record.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client: client,
	}
}

// counter mirrors the document stored under counters/{collection}.
type counter struct {
	Next int `firestore:"next"`
}

// create assigns the next ID for collection and writes the record built by
// build inside a single transaction.
func (s *FirestoreStore) create(ctx context.Context, collection string, build func(id int, createdAt time.Time) any) error {
	counterRef := s.client.Collection(countersCollection).Doc(collection)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		next := 1
		snap, err := tx.Get(counterRef)
		switch {
		case err == nil:
			var c counter
			if err := snap.DataTo(&c); err != nil {
				return fmt.Errorf("parse %s counter: %w", collection, err)
			}
			if c.Next > 0 {
				next = c.Next
			}
		case status.Code(err) == codes.NotFound:
		default:
			return fmt.Errorf("read %s counter: %w", collection, err)
		}

		record := build(next, time.Now().UTC())
		if err := tx.Set(counterRef, counter{Next: next + 1}); err != nil {
			return err
		}
		return tx.Set(s.client.Collection(collection).Doc(strconv.Itoa(next)), record)
	})
}

// get loads the document with the given id into dst.
func (s *FirestoreStore) get(ctx context.Context, collection string, id int, dst any) error {
	doc, err := s.client.Collection(collection).Doc(strconv.Itoa(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s %d: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("get %s %d: %w", collection, id, err)
	}
	if err := doc.DataTo(dst); err != nil {
		return fmt.Errorf("failed to parse %s %d: %w", collection, id, err)
	}
	return nil
}

// recent iterates the newest documents of a collection, calling decode for each.
func (s *FirestoreStore) recent(ctx context.Context, collection string, limit int, decode func(*firestore.DocumentSnapshot) error) error {
	iter := s.client.Collection(collection).
		OrderBy("createdAt", firestore.Desc).
		Limit(normalizeLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list %s: %w", collection, err)
		}
		if err := decode(doc); err != nil {
			return fmt.Errorf("failed to parse %s %s: %w", collection, doc.Ref.ID, err)
		}
	}
}

// CreateScan stores a scan under the next scan ID.
func (s *FirestoreStore) CreateScan(ctx context.Context, scan *Scan) error {
	return s.create(ctx, scansCollection, func(id int, createdAt time.Time) any {
		scan.ID = id
		scan.CreatedAt = createdAt
		return scan
	})
}

// GetScan retrieves a scan from Firestore.
func (s *FirestoreStore) GetScan(ctx context.Context, id int) (*Scan, error) {
	var scan Scan
	if err := s.get(ctx, scansCollection, id, &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// ListRecentScans returns the newest scans first.
func (s *FirestoreStore) ListRecentScans(ctx context.Context, limit int) ([]*Scan, error) {
	var scans []*Scan
	err := s.recent(ctx, scansCollection, limit, func(doc *firestore.DocumentSnapshot) error {
		var scan Scan
		if err := doc.DataTo(&scan); err != nil {
			return err
		}
		scans = append(scans, &scan)
		return nil
	})
	return scans, err
}

// CreateSession stores a session under the next session ID.
func (s *FirestoreStore) CreateSession(ctx context.Context, session *Session) error {
	return s.create(ctx, sessionsCollection, func(id int, createdAt time.Time) any {
		session.ID = id
		session.CreatedAt = createdAt
		return session
	})
}

// GetSession retrieves a session from Firestore.
func (s *FirestoreStore) GetSession(ctx context.Context, id int) (*Session, error) {
	var session Session
	if err := s.get(ctx, sessionsCollection, id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession overwrites the mutable fields of an existing session.
func (s *FirestoreStore) UpdateSession(ctx context.Context, session *Session) error {
	ref := s.client.Collection(sessionsCollection).Doc(strconv.Itoa(session.ID))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "participants", Value: session.Participants},
		{Path: "aiResolution", Value: session.AIResolution},
		{Path: "actionItems", Value: session.ActionItems},
		{Path: "fairnessScore", Value: session.FairnessScore},
		{Path: "status", Value: session.Status},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %d: %w", sessionsCollection, session.ID, ErrNotFound)
	}
	return err
}

// ListRecentSessions returns the newest sessions first.
func (s *FirestoreStore) ListRecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	var sessions []*Session
	err := s.recent(ctx, sessionsCollection, limit, func(doc *firestore.DocumentSnapshot) error {
		var session Session
		if err := doc.DataTo(&session); err != nil {
			return err
		}
		sessions = append(sessions, &session)
		return nil
	})
	return sessions, err
}
