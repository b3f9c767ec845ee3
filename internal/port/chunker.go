package port

import "kbchat/internal/domain"

type Chunker interface {
	Chunk(documentID, content string) ([]domain.Section, error)
}
