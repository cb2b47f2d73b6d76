// Package sqlite provides a catalog data source backed by a lab-local sqlite
// replica of the shade catalog. The replica is read-only from this package's
// point of view; it is refreshed out of band.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	_ "modernc.org/sqlite"

	"github.com/gtuazon18/rxn3d-core/pkg/catalog"
)

var tracer = otel.Tracer("rxn3d-core/pkg/catalog/sqlite")

// Source reads catalog snapshots from a sqlite replica with the schema:
//
//	shade_brands(id, subject_id, name, system_name)
//	shade_variants(id, brand_id, name, sequence, price)
type Source struct {
	stbl sq.StatementBuilderType
	db   *sql.DB
}

var _ catalog.DataSource = (*Source)(nil)

// PrepareDSN normalizes a raw URI for the sqlite driver, defaulting the
// journal mode and busy timeout pragmas when unspecified.
func PrepareDSN(uri string) (string, error) {
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}
		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}
	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	return uri + "?" + query.Encode(), nil
}

// New opens the replica at the given URI.
func New(uri string) (*Source, error) {
	dsn, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog replica: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging catalog replica: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle, mainly for tests.
func NewWithDB(db *sql.DB) *Source {
	return &Source{
		stbl: sq.StatementBuilder.RunWith(db),
		db:   db,
	}
}

// Close releases the underlying handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// FetchCatalog implements catalog.DataSource.
func (s *Source) FetchCatalog(ctx context.Context, subjectID int64) ([]catalog.Brand, error) {
	ctx, span := tracer.Start(ctx, "sqlite.FetchCatalog")
	defer span.End()

	rows, err := s.stbl.
		Select("id", "name", "system_name").
		From("shade_brands").
		Where(sq.Eq{"subject_id": subjectID}).
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying brands: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var brands []catalog.Brand
	for rows.Next() {
		var b catalog.Brand
		var systemName sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &systemName); err != nil {
			return nil, fmt.Errorf("scanning brand: %w", err)
		}
		b.SystemName = systemName.String
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating brands: %w", err)
	}

	for i := range brands {
		variants, err := s.fetchVariants(ctx, brands[i].ID)
		if err != nil {
			return nil, err
		}
		brands[i].Variants = variants
	}

	return brands, nil
}

func (s *Source) fetchVariants(ctx context.Context, brandID int64) ([]catalog.Variant, error) {
	rows, err := s.stbl.
		Select("id", "name", "sequence", "price").
		From("shade_variants").
		Where(sq.Eq{"brand_id": brandID}).
		OrderBy("sequence", "id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying variants: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var variants []catalog.Variant
	for rows.Next() {
		var v catalog.Variant
		var seq sql.NullInt64
		var price sql.NullFloat64
		if err := rows.Scan(&v.ID, &v.Name, &seq, &price); err != nil {
			return nil, fmt.Errorf("scanning variant: %w", err)
		}
		v.Sequence = int(seq.Int64)
		v.Price = price.Float64
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variants: %w", err)
	}

	return variants, nil
}
