package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"linkboard-be/internal/cache"
	"linkboard-be/internal/entities"
	"linkboard-be/internal/extractor"
	"linkboard-be/internal/models"
	"linkboard-be/internal/repository"
	"linkboard-be/internal/storage"

	"github.com/google/uuid"
)

const (
	listVersionKey = "links:ver"
	listCacheTTL   = 60 * time.Second

	// Thumbnails are small; anything past this is not a preview image.
	maxThumbnailBytes = 10 << 20
)

// ErrThumbnailTooLarge means the source image exceeds maxThumbnailBytes. The
// image is rejected whole; a truncated prefix never gets stored.
var ErrThumbnailTooLarge = errors.New("thumbnail too large")

// LinkService defines the interface for the link ingestion pipeline
type LinkService interface {
	CreateLink(ctx context.Context, req *models.CreateLinkRequest) (*entities.Link, error)
	DeleteLink(ctx context.Context, id string) error
	ListLinks(ctx context.Context, page int) (*models.ListLinksResponse, error)
	GetLink(ctx context.Context, id string) (*entities.Link, error)
	ResolveThumbnail(ctx context.Context, pageURL string) (string, error)
}

type linkService struct {
	repo      repository.LinkRepository
	store     storage.ObjectStore
	extractor extractor.Extractor
	cache     cache.Cache
	client    *http.Client
	folder    string
	pageSize  int
}

// NewLinkService creates a new link service. cacheClient may be nil; listing
// then always goes straight to the repository.
func NewLinkService(
	repo repository.LinkRepository,
	store storage.ObjectStore,
	ext extractor.Extractor,
	cacheClient cache.Cache,
	folder string,
	pageSize int,
	fetchTimeout time.Duration,
) LinkService {
	return &linkService{
		repo:      repo,
		store:     store,
		extractor: ext,
		cache:     cacheClient,
		client:    &http.Client{Timeout: fetchTimeout},
		folder:    folder,
		pageSize:  pageSize,
	}
}

// CreateLink runs the ingestion pipeline: extract the thumbnail source URL
// (unless the caller supplied one), download its bytes, re-host them in the
// object store, then persist the record with the durable URL. Any stage
// failure aborts the remaining stages; no partial record is ever persisted.
func (s *linkService) CreateLink(ctx context.Context, req *models.CreateLinkRequest) (*entities.Link, error) {
	thumbSrc := req.ThumbnailSourceURL
	if thumbSrc == "" {
		src, err := s.extractor.ExtractThumbnail(ctx, req.SourcePageURL)
		if err != nil {
			return nil, fmt.Errorf("extract thumbnail: %w", err)
		}
		thumbSrc = src
	}

	data, err := s.downloadThumbnail(ctx, thumbSrc)
	if err != nil {
		return nil, fmt.Errorf("download thumbnail: %w", err)
	}

	objectURL, err := s.store.Upload(ctx, data, s.folder)
	if err != nil {
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	// The record points at the durable re-hosted URL, never at the source
	// site's ephemeral one.
	link, err := s.repo.Create(req.DestinationURL, objectURL)
	if err != nil {
		// The upload already happened, so this failure orphans the stored
		// object. There is no automatic rollback; an operator (or a future
		// reconciliation sweep) has to clean it up.
		log.Printf("WARNING: link insert failed after upload, orphaned object %s: %v", objectURL, err)
		return nil, fmt.Errorf("persist link: %w", err)
	}

	s.bumpListVersion(ctx)
	return link, nil
}

// downloadThumbnail fetches the extracted thumbnail URL's bytes with a
// browser-like identity.
func (s *linkService) downloadThumbnail(ctx context.Context, thumbURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extractor.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", extractor.BrowserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extractor.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", extractor.ErrFetchFailed, resp.StatusCode, thumbURL)
	}

	// Read one byte past the limit so an oversized body is detected instead
	// of silently truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", extractor.ErrFetchFailed, err)
	}
	if len(data) > maxThumbnailBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrThumbnailTooLarge, thumbURL, maxThumbnailBytes)
	}
	return data, nil
}

// DeleteLink removes a link and its backing thumbnail object. The object goes
// first: if its deletion is not confirmed, the record is retained and the
// error surfaced, so a record never outlives confirmation of its object.
func (s *linkService) DeleteLink(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", repository.ErrInvalidID, id)
	}

	link, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, link.ThumbnailURL); err != nil {
		return fmt.Errorf("delete thumbnail object: %w", err)
	}

	// A concurrent deleter may have won the race; it already bumped the list
	// version, so ErrNotFound propagates as-is.
	if err := s.repo.DeleteByID(id); err != nil {
		return err
	}

	s.bumpListVersion(ctx)
	return nil
}

// ListLinks returns one page of the newest-first listing. Pure read, safe to
// call concurrently and repeatedly. Repository failures propagate; they are
// never masked as an empty page.
func (s *linkService) ListLinks(ctx context.Context, page int) (*models.ListLinksResponse, error) {
	if page < 1 {
		page = 1
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.listCacheKey(ctx, page)
		var cached models.ListLinksResponse
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	links, hasMore, err := s.repo.List(page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	if links == nil {
		links = []*entities.Link{}
	}

	resp := &models.ListLinksResponse{
		Links:   links,
		HasMore: hasMore,
		Page:    page,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, resp, listCacheTTL); err != nil {
			log.Printf("Warning: failed to cache link listing page %d: %v", page, err)
		}
	}

	return resp, nil
}

// GetLink looks up a single link by id
func (s *linkService) GetLink(ctx context.Context, id string) (*entities.Link, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidID, id)
	}
	return s.repo.FindByID(id)
}

// ResolveThumbnail runs extraction only, without downloading or re-hosting
func (s *linkService) ResolveThumbnail(ctx context.Context, pageURL string) (string, error) {
	return s.extractor.ExtractThumbnail(ctx, pageURL)
}

// listCacheKey namespaces cached pages under a version counter; bumping the
// counter on every write invalidates all cached pages at once.
func (s *linkService) listCacheKey(ctx context.Context, page int) string {
	ver, err := s.cache.Get(ctx, listVersionKey)
	if err != nil {
		ver = "0"
	}
	return fmt.Sprintf("links:v%s:page:%d", ver, page)
}

func (s *linkService) bumpListVersion(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, listVersionKey); err != nil {
		log.Printf("Warning: failed to bump link list version: %v", err)
	}
}
