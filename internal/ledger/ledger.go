// Package ledger records processed documents in Firestore, keyed by content
// hash, so event-driven re-deliveries and repeated runs skip work that has
// already been billed.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

// Entry is one processed-document record.
type Entry struct {
	FileHash    string    `firestore:"fileHash"`
	Name        string    `firestore:"name"`
	Destination string    `firestore:"destination"`
	ProcessedAt time.Time `firestore:"processedAt"`
}

// Store is a Firestore-backed ledger. Safe for concurrent use.
type Store struct {
	client     *firestore.Client
	collection string
}

// New creates a Store for the given project and collection.
func New(ctx context.Context, projectID, collection string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("ledger: projectID must be provided")
	}
	if collection == "" {
		collection = "ocr_documents"
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ledger: create Firestore client: %w", err)
	}
	return &Store{client: client, collection: collection}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Seen reports whether a document with this content hash was already
// processed.
func (s *Store) Seen(ctx context.Context, fileHash string) (bool, error) {
	docs, err := s.client.Collection(s.collection).
		Where("fileHash", "==", fileHash).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return false, fmt.Errorf("ledger: query for hash: %w", err)
	}
	return len(docs) > 0, nil
}

// Record registers a processed document.
func (s *Store) Record(ctx context.Context, fileHash, name, destination string) error {
	entry := Entry{
		FileHash:    fileHash,
		Name:        name,
		Destination: destination,
		ProcessedAt: time.Now(),
	}
	if _, _, err := s.client.Collection(s.collection).Add(ctx, entry); err != nil {
		return fmt.Errorf("ledger: record %s: %w", name, err)
	}
	return nil
}

// Hash returns the hex SHA-256 of a document's content.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
