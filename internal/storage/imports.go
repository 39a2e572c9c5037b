package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrImportExists is returned when an import id is reused.
var ErrImportExists = errors.New("import already recorded")

// Import is one recorded import of a hand-history file.
type Import struct {
	ID         string
	FileName   string
	FileHash   string
	Site       string
	StartedAt  time.Time
	FinishedAt time.Time
	Stored     int
	Duplicates int
	Partial    int
	Errors     int
}

// BeginImport records the start of an import.
func (db *DB) BeginImport(ctx context.Context, id, fileName, fileHash, site string, started time.Time) error {
	q := db.q().sql("INSERT INTO imports (id, fileName, fileHash, site, startedAt) VALUES (").
		list(id, fileName, fileHash, site, started.Unix()).sql(")")
	if _, err := db.conn.ExecContext(ctx, q.String(), q.Args()...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("import %s: %w", id, ErrImportExists)
		}
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

// FinishImport stores an import's final counts. A zero FinishedAt leaves
// the import unfinished.
func (db *DB) FinishImport(ctx context.Context, imp Import) error {
	var finished int64
	if !imp.FinishedAt.IsZero() {
		finished = imp.FinishedAt.Unix()
	}
	q := db.q().sql("UPDATE imports SET finishedAt = ").arg(finished).
		sql(", stored = ").arg(imp.Stored).
		sql(", duplicates = ").arg(imp.Duplicates).
		sql(", partial = ").arg(imp.Partial).
		sql(", errors = ").arg(imp.Errors).
		sql(" WHERE id = ").arg(imp.ID)
	res, err := db.conn.ExecContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("import %s: %w", imp.ID, ErrNotFound)
	}
	return nil
}

// FileImported reports whether a file with this content hash finished
// importing before.
func (db *DB) FileImported(ctx context.Context, fileHash string) (bool, error) {
	q := db.q().sql("SELECT COUNT(1) FROM imports WHERE finishedAt > 0 AND fileHash = ").arg(fileHash)
	var n int
	if err := db.conn.QueryRowContext(ctx, q.String(), q.Args()...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListImports returns recorded imports, latest first.
func (db *DB) ListImports(ctx context.Context) ([]Import, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, fileName, fileHash, site, startedAt, finishedAt,
		stored, duplicates, partial, errors FROM imports ORDER BY startedAt DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var imp Import
		var started, finished int64
		if err := rows.Scan(&imp.ID, &imp.FileName, &imp.FileHash, &imp.Site, &started, &finished,
			&imp.Stored, &imp.Duplicates, &imp.Partial, &imp.Errors); err != nil {
			return nil, err
		}
		imp.StartedAt = time.Unix(started, 0).UTC()
		if finished > 0 {
			imp.FinishedAt = time.Unix(finished, 0).UTC()
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// DeleteImport removes an import and every hand it stored. It returns the
// ids of the players whose hands were removed so their caches can be
// recomputed.
func (db *DB) DeleteImport(ctx context.Context, id string) ([]int64, error) {
	var players []int64
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		c := db.q().sql("SELECT COUNT(1) FROM imports WHERE id = ").arg(id)
		if err := tx.QueryRowContext(ctx, c.String(), c.Args()...).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("import %s: %w", id, ErrNotFound)
		}

		sel := db.q().sql(`SELECT DISTINCT hp.playerId FROM handsplayers hp JOIN hands h ON h.id = hp.handId
			WHERE h.importId = `).arg(id)
		rows, err := tx.QueryContext(ctx, sel.String(), sel.Args()...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var pid int64
			if err := rows.Scan(&pid); err != nil {
				rows.Close()
				return err
			}
			players = append(players, pid)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, stmt := range []string{
			"DELETE FROM handsactions WHERE handId IN (SELECT id FROM hands WHERE importId = ",
			"DELETE FROM handsplayers WHERE handId IN (SELECT id FROM hands WHERE importId = ",
			"DELETE FROM hands WHERE (importId = ",
			"DELETE FROM imports WHERE (id = ",
		} {
			del := db.q().sql(stmt).arg(id).sql(")")
			if _, err := tx.ExecContext(ctx, del.String(), del.Args()...); err != nil {
				return fmt.Errorf("delete import %s: %w", id, err)
			}
		}
		return nil
	})
	return players, err
}
