package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"kbchat/internal/domain"
)

var bucketDocuments = []byte("documents")

// BoltStore is the bbolt-backed document registry.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open document db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docMeta struct {
	Title      string              `json:"title"`
	Language   string              `json:"language"`
	Sections   []domain.SectionRef `json:"sections"`
	ChunkCount int                 `json:"chunk_count"`
	CreatedAt  int64               `json:"created_at"`
	UpdatedAt  int64               `json:"updated_at"`
}

func (s *BoltStore) Put(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := docMeta{
			Title:      doc.Title,
			Language:   doc.Language,
			Sections:   doc.Sections,
			ChunkCount: doc.ChunkCount,
			CreatedAt:  doc.CreatedAt.Unix(),
			UpdatedAt:  doc.UpdatedAt.Unix(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocuments).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) Get(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = fromMeta(id, meta)
		return nil
	})
	return doc, err
}

func (s *BoltStore) List() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil // Skip corrupted entries
			}
			docs = append(docs, fromMeta(string(k), meta))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Most recently updated first, matching the admin listing.
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(id))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func fromMeta(id string, meta docMeta) domain.Document {
	return domain.Document{
		ID:         id,
		Title:      meta.Title,
		Language:   meta.Language,
		Sections:   meta.Sections,
		ChunkCount: meta.ChunkCount,
		CreatedAt:  time.Unix(meta.CreatedAt, 0),
		UpdatedAt:  time.Unix(meta.UpdatedAt, 0),
	}
}
