package port

import "kbchat/internal/domain"

// DocumentStore is the registry of ingested documents, used for admin
// listings and knowledge-base status. Vectors live in the VectorIndex.
type DocumentStore interface {
	Put(doc domain.Document) error

	Get(id string) (domain.Document, error)

	List() ([]domain.Document, error)

	Delete(id string) error

	Close() error
}
