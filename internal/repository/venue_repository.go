package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/cartelera/internal/model"
)

var venueColumns = []string{"id", "name", "address", "location", "website", "source", "family"}

// VenueRepo encapsulates all queries on the venues table.
type VenueRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewVenueRepo constructs a VenueRepo for the given dialect.
func NewVenueRepo(db *sql.DB, dialect Dialect) *VenueRepo {
	return &VenueRepo{db: db, dialect: dialect}
}

// StoredVenue is a venue row together with the last persisted listing
// summary.
type StoredVenue struct {
	model.Venue
	LastUpdated time.Time
	ShowIDs     []string
	Sessions    map[string][]model.Session
}

// UpsertVenues writes the descriptive columns of every venue in one
// transaction.  Listing columns are left alone.
func (r *VenueRepo) UpsertVenues(ctx context.Context, venues []model.Venue) error {
	if len(venues) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(r.dialect, "venues", venueColumns, venueColumns[1:]))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, v := range venues {
		if _, err := stmt.ExecContext(ctx, v.ID, v.Name, v.Address, v.Location, v.Website, v.Source, v.Family); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertListing writes the venue row along with the listing's show ids,
// sessions and refresh time.
func (r *VenueRepo) UpsertListing(ctx context.Context, l model.Listing) error {
	showIDs, err := json.Marshal(l.ShowIDs())
	if err != nil {
		return err
	}
	sessions, err := json.Marshal(l.SessionsByShow())
	if err != nil {
		return err
	}
	cols := append(append([]string{}, venueColumns...), "last_updated", "show_ids", "sessions")
	q := upsertQuery(r.dialect, "venues", cols, cols[1:])
	_, err = r.db.ExecContext(ctx, q,
		l.ID, l.Name, l.Address, l.Location, l.Website, l.Source, l.Family,
		l.LastUpdated.UTC().Format(time.RFC3339), string(showIDs), string(sessions))
	return err
}

// GetByID fetches a venue row.  It returns ErrVenueNotFound if no row is
// found.
func (r *VenueRepo) GetByID(ctx context.Context, id string) (*StoredVenue, error) {
	const q = `SELECT id, name, address, location, website, source, family, last_updated, show_ids, sessions
		FROM venues WHERE id = ?`
	var (
		v                              StoredVenue
		lastUpdated, showIDs, sessions sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.Name, &v.Address, &v.Location, &v.Website, &v.Source, &v.Family,
		&lastUpdated, &showIDs, &sessions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	if lastUpdated.Valid && lastUpdated.String != "" {
		if v.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated.String); err != nil {
			return nil, err
		}
	}
	if err := decodeJSON(showIDs, &v.ShowIDs); err != nil {
		return nil, err
	}
	if err := decodeJSON(sessions, &v.Sessions); err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns every venue row ordered by id.
func (r *VenueRepo) List(ctx context.Context) ([]model.Venue, error) {
	const q = `SELECT id, name, address, location, website, source, family FROM venues ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.Location, &v.Website, &v.Source, &v.Family); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func decodeJSON(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}
