package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/telemetry"
	"cablequest/services/archive/db"
)

var tracer = telemetry.Tracer("services/archive")

// ErrNoDatabase is returned by stored-cable reads when the service was
// built without a database.
var ErrNoDatabase = errors.New("no archive database configured")

// Progress reports one pipeline step. Done counts cables handled so
// far, including ones restored from the checkpoint without a request.
type Progress struct {
	Done  int
	Total int
	Cable plusd.CableRecord
}

type ServiceOptions struct {
	Client *plusd.Client
	// Database mirrors every cable as its checkpoint entry lands.
	// Resume never depends on it, the checkpoint file alone drives
	// that.
	Database *sql.DB
	// Delay between consecutive fetches, 1.5s when zero.
	Delay time.Duration
	// Sleep replaces time.Sleep in tests.
	Sleep func(time.Duration)
}

type Service struct {
	client *plusd.Client
	db     *sql.DB
	qry    *db.Queries
	delay  time.Duration
	sleep  func(time.Duration)
}

func NewService(options ServiceOptions) Service {
	if options.Delay == 0 {
		options.Delay = 1500 * time.Millisecond
	}
	if options.Sleep == nil {
		options.Sleep = time.Sleep
	}

	var qry *db.Queries
	if options.Database != nil {
		qry = db.New(options.Database)
	}
	return Service{
		client: options.Client,
		db:     options.Database,
		qry:    qry,
		delay:  options.Delay,
		sleep:  options.Sleep,
	}
}

// FetchAll downloads every cable in records, resuming from the
// checkpoint at checkpointPath. Records already complete in the
// checkpoint are restored without a request; previously failed ones
// are retried. A failed download becomes an error record instead of
// aborting the run. A checkpoint write failure does abort, continuing
// would sacrifice resumability. When a database is configured, each
// cable is mirrored into it in the same iteration, so an interrupted
// run leaves the mirror as complete as the checkpoint.
func (s Service) FetchAll(
	ctx context.Context,
	keyword string,
	records []plusd.ResultRecord,
	checkpointPath string,
	onProgress func(Progress),
) ([]plusd.CableRecord, error) {
	ctx, span := tracer.Start(ctx, "FetchAll")
	defer span.End()
	span.SetAttributes(attribute.Int("cables", len(records)))

	checkpoint, err := LoadCheckpoint(checkpointPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkpoint load failed")
		return nil, err
	}
	checkpoint.Keyword = keyword
	checkpoint.CableIDs = make([]string, len(records))
	for i, record := range records {
		checkpoint.CableIDs[i] = record.CableID
	}

	total := len(records)
	fetched := make([]plusd.CableRecord, 0, total)
	report := func(done int, cable plusd.CableRecord) {
		if onProgress != nil {
			onProgress(Progress{Done: done, Total: total, Cable: cable})
		}
	}

	for i, result := range records {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}

		if cable, ok := checkpoint.Completed[result.CableID]; ok && cable.FetchError == "" {
			s.mirrorCable(ctx, cable)
			fetched = append(fetched, cable)
			report(i+1, cable)
			continue
		}

		cable, err := s.client.FetchCable(ctx, result.CableID)
		if err != nil {
			cable = plusd.CableRecord{
				CableID:    result.CableID,
				Title:      result.Title,
				FullText:   fmt.Sprintf("[ERROR: Failed to fetch - %v]", err),
				FetchError: err.Error(),
			}
		}
		// The listing's date fills in for detail pages that omit one.
		if cable.Date == "" && result.Date != "" {
			cable.Date = result.Date
		}

		checkpoint.Completed[result.CableID] = cable
		err = SaveCheckpoint(checkpointPath, checkpoint)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkpoint save failed")
			return fetched, fmt.Errorf("save checkpoint: %w", err)
		}

		s.mirrorCable(ctx, cable)
		fetched = append(fetched, cable)
		report(i+1, cable)

		if i < total-1 {
			s.sleep(s.delay)
		}
	}

	return fetched, nil
}

// mirrorCable upserts one cable into the archive database. Mirror
// failures are logged and skipped, the checkpoint is the durability
// source of truth and only its writes may abort a run.
func (s Service) mirrorCable(ctx context.Context, cable plusd.CableRecord) {
	if s.qry == nil {
		return
	}
	err := s.qry.UpsertCable(ctx, db.UpsertCableParams{
		CableID:    cable.CableID,
		Title:      cable.Title,
		Date:       cable.Date,
		FullText:   cable.FullText,
		Origin:     cable.Origin,
		FetchError: cable.FetchError,
		FetchedAt:  time.Now().Unix(),
	})
	if err != nil {
		slog.WarnContext(
			ctx, "failed to mirror cable into the archive database",
			"cable_id", cable.CableID, "err", err,
		)
	}
}

// StoreRun mirrors a completed batch into the archive database and
// records the search that produced it. One transaction, a run either
// lands fully or not at all. A no-op without a database.
func (s Service) StoreRun(ctx context.Context, keyword string, cables []plusd.CableRecord) error {
	if s.db == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "StoreRun")
	defer span.End()
	span.SetAttributes(attribute.String("keyword", keyword))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := time.Now().Unix()
	for _, cable := range cables {
		err := txqry.UpsertCable(ctx, db.UpsertCableParams{
			CableID:    cable.CableID,
			Title:      cable.Title,
			Date:       cable.Date,
			FullText:   cable.FullText,
			Origin:     cable.Origin,
			FetchError: cable.FetchError,
			FetchedAt:  now,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	err = txqry.RecordSearch(ctx, db.RecordSearchParams{
		Keyword:     keyword,
		RunAt:       now,
		ResultCount: int64(len(cables)),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return tx.Commit()
}

// StoredCables returns every mirrored cable, oldest first.
func (s Service) StoredCables(ctx context.Context) ([]plusd.CableRecord, error) {
	if s.qry == nil {
		return nil, ErrNoDatabase
	}

	rows, err := s.qry.ListCables(ctx)
	if err != nil {
		return nil, err
	}
	cables := make([]plusd.CableRecord, len(rows))
	for i, row := range rows {
		cables[i] = cableFromRow(row)
	}
	return cables, nil
}

// StoredCable looks up one mirrored cable by id.
func (s Service) StoredCable(ctx context.Context, cableId string) (plusd.CableRecord, error) {
	if s.qry == nil {
		return plusd.CableRecord{}, ErrNoDatabase
	}

	row, err := s.qry.GetCable(ctx, cableId)
	if err != nil {
		return plusd.CableRecord{}, err
	}
	return cableFromRow(row), nil
}

func (s Service) CountStored(ctx context.Context) (int64, error) {
	if s.qry == nil {
		return 0, ErrNoDatabase
	}
	return s.qry.CountCables(ctx)
}

// RecentSearches lists the latest recorded search runs, newest first.
func (s Service) RecentSearches(ctx context.Context, limit int64) ([]db.Search, error) {
	if s.qry == nil {
		return nil, ErrNoDatabase
	}
	return s.qry.ListSearches(ctx, limit)
}

func cableFromRow(row db.Cable) plusd.CableRecord {
	return plusd.CableRecord{
		CableID:    row.CableID,
		Title:      row.Title,
		Date:       row.Date,
		FullText:   row.FullText,
		Origin:     row.Origin,
		FetchError: row.FetchError,
	}
}
