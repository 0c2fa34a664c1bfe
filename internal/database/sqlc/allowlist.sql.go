package sqldb

import "context"

const listAllowlist = `SELECT ext FROM allowlist ORDER BY ext`

func (q *Queries) ListAllowlist(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listAllowlist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var ext string
		if err := rows.Scan(&ext); err != nil {
			return nil, err
		}
		items = append(items, ext)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertAllowlistExt = `INSERT INTO allowlist (ext) VALUES (?) ON CONFLICT (ext) DO NOTHING`

func (q *Queries) InsertAllowlistExt(ctx context.Context, ext string) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertAllowlistExt, ext)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllowlistExt = `DELETE FROM allowlist WHERE ext = ?`

func (q *Queries) DeleteAllowlistExt(ctx context.Context, ext string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllowlistExt, ext)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllAllowlist = `DELETE FROM allowlist`

func (q *Queries) DeleteAllAllowlist(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllAllowlist)
	return err
}
