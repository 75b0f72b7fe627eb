package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkboard-be/internal/entities"
	"linkboard-be/internal/extractor"
	"linkboard-be/internal/models"
	"linkboard-be/internal/repository"
	"linkboard-be/internal/storage"
)

type fakeExtractor struct {
	thumbnailURL string
	err          error
	calls        int
}

func (f *fakeExtractor) ExtractThumbnail(ctx context.Context, pageURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.thumbnailURL, nil
}

type fakeStore struct {
	uploads    [][]byte
	uploadURL  string
	uploadErr  error
	deleted    []string
	deleteErr  error
}

func (f *fakeStore) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, data)
	return f.uploadURL, nil
}

func (f *fakeStore) Delete(ctx context.Context, objectURL string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, objectURL)
	return nil
}

type fakeRepo struct {
	created     []*entities.Link
	createErr   error
	listResult  []*entities.Link
	listHasMore bool
	listErr     error
	listCalls   int
	byID        map[string]*entities.Link
	deleted     []string
	deleteErr   error
}

func (f *fakeRepo) Create(destinationURL, thumbnailURL string) (*entities.Link, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	link := &entities.Link{
		ID:             "3b241101-e2bb-4255-8caf-4136c566a962",
		DestinationURL: destinationURL,
		ThumbnailURL:   thumbnailURL,
		CreatedAt:      time.Now().UTC(),
	}
	f.created = append(f.created, link)
	return link, nil
}

func (f *fakeRepo) List(page, pageSize int) ([]*entities.Link, bool, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, false, f.listErr
	}
	return f.listResult, f.listHasMore, nil
}

func (f *fakeRepo) FindByID(id string) (*entities.Link, error) {
	link, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return link, nil
}

func (f *fakeRepo) DeleteByID(id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

const (
	validID    = "3b241101-e2bb-4255-8caf-4136c566a962"
	durableURL = "https://store.example/thumbnails/3b241101.jpg"
)

func newTestService(repo *fakeRepo, store *fakeStore, ext *fakeExtractor) LinkService {
	return NewLinkService(repo, store, ext, nil, "thumbnails", 3, 5*time.Second)
}

// imageServer serves thumbnail bytes and counts hits.
func imageServer(t *testing.T, body []byte, status int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestCreateLink_HappyPath(t *testing.T) {
	imageBody := []byte("raw image bytes")
	server, hits := imageServer(t, imageBody, http.StatusOK)

	ext := &fakeExtractor{thumbnailURL: server.URL + "/img1.jpg"}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	link, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/1",
		SourcePageURL:  "https://example.com/post/1",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/video/1", link.DestinationURL)
	// The persisted thumbnail is the durable re-hosted URL, not the source one
	assert.Equal(t, durableURL, link.ThumbnailURL)
	assert.NotEqual(t, ext.thumbnailURL, link.ThumbnailURL)

	assert.Equal(t, 1, *hits)
	require.Len(t, store.uploads, 1)
	assert.Equal(t, imageBody, store.uploads[0], "the store must receive exactly the downloaded bytes")
	require.Len(t, repo.created, 1)
}

func TestCreateLink_CallerSuppliedThumbnailSkipsExtraction(t *testing.T) {
	server, _ := imageServer(t, []byte("img"), http.StatusOK)

	ext := &fakeExtractor{}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	link, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL:     "https://example.com/video/2",
		ThumbnailSourceURL: server.URL + "/known.jpg",
	})
	require.NoError(t, err)

	assert.Zero(t, ext.calls, "extraction must be skipped when the caller supplies the source URL")
	// But the image is still re-hosted, never trusted as durable
	assert.Equal(t, durableURL, link.ThumbnailURL)
}

func TestCreateLink_ExtractionFailureHasNoSideEffects(t *testing.T) {
	_, hits := imageServer(t, []byte("img"), http.StatusOK)

	ext := &fakeExtractor{err: fmt.Errorf("%w: no og:image", extractor.ErrThumbnailNotFound)}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	_, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/3",
		SourcePageURL:  "https://example.com/post/3",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, extractor.ErrThumbnailNotFound)

	assert.Zero(t, *hits, "no download after a failed extraction")
	assert.Empty(t, store.uploads, "no object stored after a failed extraction")
	assert.Empty(t, repo.created, "no record created after a failed extraction")
}

func TestCreateLink_DownloadFailureStopsBeforeUpload(t *testing.T) {
	server, _ := imageServer(t, nil, http.StatusNotFound)

	ext := &fakeExtractor{thumbnailURL: server.URL + "/gone.jpg"}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	_, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/4",
		SourcePageURL:  "https://example.com/post/4",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, extractor.ErrFetchFailed)

	assert.Empty(t, store.uploads)
	assert.Empty(t, repo.created)
}

func TestCreateLink_UploadFailureCreatesNoRecord(t *testing.T) {
	server, _ := imageServer(t, []byte("img"), http.StatusOK)

	ext := &fakeExtractor{thumbnailURL: server.URL + "/img.jpg"}
	store := &fakeStore{uploadErr: fmt.Errorf("%w: bucket gone", storage.ErrUploadFailed)}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	_, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/5",
		SourcePageURL:  "https://example.com/post/5",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUploadFailed)
	assert.Empty(t, repo.created)
}

func TestCreateLink_PersistFailureSurfacesOrphan(t *testing.T) {
	server, _ := imageServer(t, []byte("img"), http.StatusOK)

	ext := &fakeExtractor{thumbnailURL: server.URL + "/img.jpg"}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{createErr: fmt.Errorf("insert: %w", repository.ErrUnavailable)}
	svc := newTestService(repo, store, ext)

	_, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/6",
		SourcePageURL:  "https://example.com/post/6",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUnavailable)

	// The upload happened; the orphaned object is reported, not rolled back
	assert.Len(t, store.uploads, 1)
	assert.Empty(t, store.deleted)
}

func TestCreateLink_OversizedThumbnailRejected(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, maxThumbnailBytes+1024)
	server, _ := imageServer(t, body, http.StatusOK)

	ext := &fakeExtractor{thumbnailURL: server.URL + "/huge.jpg"}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	_, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/7",
		SourcePageURL:  "https://example.com/post/7",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThumbnailTooLarge)

	// Never store a truncated prefix of the image
	assert.Empty(t, store.uploads)
	assert.Empty(t, repo.created)
}

func TestCreateLink_ThumbnailAtSizeLimitAccepted(t *testing.T) {
	body := bytes.Repeat([]byte{0xCD}, maxThumbnailBytes)
	server, _ := imageServer(t, body, http.StatusOK)

	ext := &fakeExtractor{thumbnailURL: server.URL + "/big.jpg"}
	store := &fakeStore{uploadURL: durableURL}
	repo := &fakeRepo{}
	svc := newTestService(repo, store, ext)

	_, err := svc.CreateLink(context.Background(), &models.CreateLinkRequest{
		DestinationURL: "https://example.com/video/8",
		SourcePageURL:  "https://example.com/post/8",
	})
	require.NoError(t, err)

	require.Len(t, store.uploads, 1)
	assert.Len(t, store.uploads[0], maxThumbnailBytes, "bytes at the limit pass through whole")
}

func TestDeleteLink_Success(t *testing.T) {
	link := &entities.Link{ID: validID, DestinationURL: "https://example.com/v", ThumbnailURL: durableURL}
	repo := &fakeRepo{byID: map[string]*entities.Link{validID: link}}
	store := &fakeStore{}
	svc := newTestService(repo, store, &fakeExtractor{})

	err := svc.DeleteLink(context.Background(), validID)
	require.NoError(t, err)

	assert.Equal(t, []string{durableURL}, store.deleted)
	assert.Equal(t, []string{validID}, repo.deleted)

	_, err = repo.FindByID(validID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteLink_InvalidID(t *testing.T) {
	repo := &fakeRepo{byID: map[string]*entities.Link{}}
	store := &fakeStore{}
	svc := newTestService(repo, store, &fakeExtractor{})

	err := svc.DeleteLink(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, repository.ErrInvalidID)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, store.deleted, "no storage call for a malformed id")
}

func TestDeleteLink_NotFound(t *testing.T) {
	repo := &fakeRepo{byID: map[string]*entities.Link{}}
	store := &fakeStore{}
	svc := newTestService(repo, store, &fakeExtractor{})

	err := svc.DeleteLink(context.Background(), validID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, store.deleted)
}

func TestDeleteLink_StorageFailureRetainsRecord(t *testing.T) {
	link := &entities.Link{ID: validID, ThumbnailURL: durableURL}
	repo := &fakeRepo{byID: map[string]*entities.Link{validID: link}}
	store := &fakeStore{deleteErr: fmt.Errorf("%w: backend says no", storage.ErrDeleteFailed)}
	svc := newTestService(repo, store, &fakeExtractor{})

	err := svc.DeleteLink(context.Background(), validID)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDeleteFailed)

	// The record must survive an unconfirmed object deletion
	assert.Empty(t, repo.deleted)
	got, err := svc.GetLink(context.Background(), validID)
	require.NoError(t, err)
	assert.Equal(t, durableURL, got.ThumbnailURL)
}

func TestListLinks_Delegation(t *testing.T) {
	links := []*entities.Link{
		{ID: "a", DestinationURL: "https://example.com/1", ThumbnailURL: durableURL},
		{ID: "b", DestinationURL: "https://example.com/2", ThumbnailURL: durableURL},
	}
	repo := &fakeRepo{listResult: links, listHasMore: true}
	svc := newTestService(repo, &fakeStore{}, &fakeExtractor{})

	resp, err := svc.ListLinks(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, links, resp.Links)
	assert.True(t, resp.HasMore)
	assert.Equal(t, 2, resp.Page)
}

func TestListLinks_Idempotent(t *testing.T) {
	links := []*entities.Link{{ID: "a", DestinationURL: "https://example.com/1", ThumbnailURL: durableURL}}
	repo := &fakeRepo{listResult: links}
	svc := newTestService(repo, &fakeStore{}, &fakeExtractor{})

	first, err := svc.ListLinks(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.ListLinks(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListLinks_EmptyPageIsNotAnError(t *testing.T) {
	repo := &fakeRepo{listResult: nil, listHasMore: false}
	svc := newTestService(repo, &fakeStore{}, &fakeExtractor{})

	resp, err := svc.ListLinks(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, resp.Links)
	assert.Empty(t, resp.Links)
	assert.False(t, resp.HasMore)
}

func TestListLinks_ErrorPropagates(t *testing.T) {
	repo := &fakeRepo{listErr: fmt.Errorf("list: %w", repository.ErrUnavailable)}
	svc := newTestService(repo, &fakeStore{}, &fakeExtractor{})

	_, err := svc.ListLinks(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestListLinks_ClampsPageToOne(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeStore{}, &fakeExtractor{})

	resp, err := svc.ListLinks(context.Background(), -5)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 1, repo.listCalls)
}

func TestGetLink_InvalidID(t *testing.T) {
	svc := newTestService(&fakeRepo{byID: map[string]*entities.Link{}}, &fakeStore{}, &fakeExtractor{})

	_, err := svc.GetLink(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, repository.ErrInvalidID)
}

func TestResolveThumbnail_Delegates(t *testing.T) {
	ext := &fakeExtractor{thumbnailURL: "https://cdn.example/img1.jpg"}
	svc := newTestService(&fakeRepo{}, &fakeStore{}, ext)

	got, err := svc.ResolveThumbnail(context.Background(), "https://example.com/post/1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img1.jpg", got)
	assert.Equal(t, 1, ext.calls)
}
