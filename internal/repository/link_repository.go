package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"linkboard-be/internal/entities"
)

var (
	// ErrNotFound means no record exists for the given identifier.
	ErrNotFound = errors.New("link not found")
	// ErrInvalidID means an externally supplied identifier does not parse as
	// a valid identifier at all; distinct from ErrNotFound.
	ErrInvalidID = errors.New("invalid link id")
	// ErrUnavailable means the backing store could not be reached.
	ErrUnavailable = errors.New("repository unavailable")
)

// LinkRepository defines the interface for link database operations
type LinkRepository interface {
	Create(destinationURL, thumbnailURL string) (*entities.Link, error)
	List(page, pageSize int) ([]*entities.Link, bool, error)
	FindByID(id string) (*entities.Link, error)
	DeleteByID(id string) error
}

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new link with a server-assigned id and timestamp
func (r *linkRepository) Create(destinationURL, thumbnailURL string) (*entities.Link, error) {
	query := `
		INSERT INTO links (destination_url, thumbnail_url)
		VALUES ($1, $2)
		RETURNING id, destination_url, thumbnail_url, created_at
	`

	var link entities.Link
	err := r.db.QueryRow(query, destinationURL, thumbnailURL).Scan(
		&link.ID,
		&link.DestinationURL,
		&link.ThumbnailURL,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w: %w", ErrUnavailable, err)
	}

	return &link, nil
}

// List returns one page of links, newest first. Ties on created_at are broken
// by id so repeated reads see a stable order. One extra row is fetched to
// decide whether more pages exist.
func (r *linkRepository) List(page, pageSize int) ([]*entities.Link, bool, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT id, destination_url, thumbnail_url, created_at
		FROM links
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(query, pageSize+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list links: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var links []*entities.Link
	for rows.Next() {
		var link entities.Link
		err := rows.Scan(
			&link.ID,
			&link.DestinationURL,
			&link.ThumbnailURL,
			&link.CreatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, &link)
	}
	if err = rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating links: %w", err)
	}

	hasMore := len(links) > pageSize
	if hasMore {
		links = links[:pageSize]
	}

	return links, hasMore, nil
}

// FindByID finds a link by its id. A malformed id is ErrInvalidID, never a
// database round trip.
func (r *linkRepository) FindByID(id string) (*entities.Link, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	query := `
		SELECT id, destination_url, thumbnail_url, created_at
		FROM links
		WHERE id = $1
	`

	var link entities.Link
	err := r.db.QueryRow(query, id).Scan(
		&link.ID,
		&link.DestinationURL,
		&link.ThumbnailURL,
		&link.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w: %w", ErrUnavailable, err)
	}

	return &link, nil
}

// DeleteByID removes a link. The delete is atomic (delete-if-exists): when two
// callers race on the same id, at most one observes success and the other gets
// ErrNotFound.
func (r *linkRepository) DeleteByID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	result, err := r.db.Exec(`DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w: %w", ErrUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}
