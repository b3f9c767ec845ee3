package vectorindex

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"kbchat/internal/port"
)

// commitFailDriver accepts every statement but fails the transaction
// commit, so batch writes must not report success.
type commitFailDriver struct{}

type commitFailConn struct{}

type commitFailStmt struct{}

type commitFailTx struct{}

func (commitFailDriver) Open(name string) (driver.Conn, error) { return commitFailConn{}, nil }

func (commitFailConn) Prepare(query string) (driver.Stmt, error) { return commitFailStmt{}, nil }
func (commitFailConn) Close() error                              { return nil }
func (commitFailConn) Begin() (driver.Tx, error)                 { return commitFailTx{}, nil }

func (commitFailStmt) Close() error  { return nil }
func (commitFailStmt) NumInput() int { return -1 }
func (commitFailStmt) Exec(args []driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}
func (commitFailStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New("not implemented")
}

func (commitFailTx) Commit() error   { return errors.New("commit failed") }
func (commitFailTx) Rollback() error { return nil }

func init() {
	sql.Register("pgvector-commitfail", commitFailDriver{})
}

func TestPostgresUpsertReportsCommitFailure(t *testing.T) {
	db, err := sql.Open("pgvector-commitfail", "")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	index := &PostgresIndex{db: db, dimension: 3}
	err = index.Upsert(context.Background(), []port.IndexEntry{{
		ID:     "doc1-install",
		Vector: []float32{0.1, 0.2, 0.3},
		Metadata: port.EntryMetadata{
			DocumentID:   "doc1",
			SectionTitle: "Install",
			Content:      "Install by downloading the binary.",
			Language:     "en",
		},
	}})
	if err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if !strings.Contains(err.Error(), "commit failed") {
		t.Errorf("got %v", err)
	}
}

func TestEncodeVectorLiteral(t *testing.T) {
	lit, err := encodeVectorLiteral([]float32{1, 0.5, -2})
	if err != nil {
		t.Fatal(err)
	}
	if lit != "[1,0.5,-2]" {
		t.Errorf("got %q", lit)
	}
	if _, err := encodeVectorLiteral(nil); err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestFilterClause(t *testing.T) {
	where, args := filterClause(port.Filter{DocumentID: "doc1", Language: "hi"}, 2)
	if where != " WHERE document_id = $3 AND language = $4" {
		t.Errorf("got %q", where)
	}
	if len(args) != 2 || args[0] != "doc1" || args[1] != "hi" {
		t.Errorf("got args %v", args)
	}

	where, args = filterClause(port.Filter{}, 0)
	if where != "" || args != nil {
		t.Errorf("empty filter should produce no clause, got %q %v", where, args)
	}
}
