package db

import "context"

// Cable is one mirrored archive record. Empty string columns mean the
// field was absent on the source page.
type Cable struct {
	CableID    string
	Title      string
	Date       string
	FullText   string
	Origin     string
	FetchError string
	FetchedAt  int64
}

type Search struct {
	ID          int64
	Keyword     string
	RunAt       int64
	ResultCount int64
}

const upsertCable = `
INSERT INTO cables (cable_id, title, date, full_text, origin, fetch_error, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cable_id) DO UPDATE SET
    title = excluded.title,
    date = excluded.date,
    full_text = excluded.full_text,
    origin = excluded.origin,
    fetch_error = excluded.fetch_error,
    fetched_at = excluded.fetched_at
`

type UpsertCableParams struct {
	CableID    string
	Title      string
	Date       string
	FullText   string
	Origin     string
	FetchError string
	FetchedAt  int64
}

func (q *Queries) UpsertCable(ctx context.Context, arg UpsertCableParams) error {
	_, err := q.db.ExecContext(ctx, upsertCable,
		arg.CableID, arg.Title, arg.Date, arg.FullText,
		arg.Origin, arg.FetchError, arg.FetchedAt)
	return err
}

const getCable = `
SELECT cable_id, title, date, full_text, origin, fetch_error, fetched_at
FROM cables WHERE cable_id = ?
`

func (q *Queries) GetCable(ctx context.Context, cableId string) (Cable, error) {
	row := q.db.QueryRowContext(ctx, getCable, cableId)
	var c Cable
	err := row.Scan(
		&c.CableID, &c.Title, &c.Date, &c.FullText,
		&c.Origin, &c.FetchError, &c.FetchedAt)
	return c, err
}

const listCables = `
SELECT cable_id, title, date, full_text, origin, fetch_error, fetched_at
FROM cables ORDER BY date, cable_id
`

func (q *Queries) ListCables(ctx context.Context) ([]Cable, error) {
	rows, err := q.db.QueryContext(ctx, listCables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cables []Cable
	for rows.Next() {
		var c Cable
		err := rows.Scan(
			&c.CableID, &c.Title, &c.Date, &c.FullText,
			&c.Origin, &c.FetchError, &c.FetchedAt)
		if err != nil {
			return nil, err
		}
		cables = append(cables, c)
	}
	return cables, rows.Err()
}

const countCables = `SELECT count(*) FROM cables`

func (q *Queries) CountCables(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCables)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const recordSearch = `
INSERT INTO searches (keyword, run_at, result_count) VALUES (?, ?, ?)
`

type RecordSearchParams struct {
	Keyword     string
	RunAt       int64
	ResultCount int64
}

func (q *Queries) RecordSearch(ctx context.Context, arg RecordSearchParams) error {
	_, err := q.db.ExecContext(ctx, recordSearch, arg.Keyword, arg.RunAt, arg.ResultCount)
	return err
}

const listSearches = `
SELECT id, keyword, run_at, result_count
FROM searches ORDER BY run_at DESC, id DESC LIMIT ?
`

func (q *Queries) ListSearches(ctx context.Context, limit int64) ([]Search, error) {
	rows, err := q.db.QueryContext(ctx, listSearches, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var searches []Search
	for rows.Next() {
		var s Search
		err := rows.Scan(&s.ID, &s.Keyword, &s.RunAt, &s.ResultCount)
		if err != nil {
			return nil, err
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}
