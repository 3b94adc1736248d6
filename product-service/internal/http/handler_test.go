package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/cartstate/product-service/internal/domain"
	"github.com/fjod/cartstate/product-service/internal/repository"
	"github.com/fjod/cartstate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type RepoMock struct {
	products []*domain.Product
	err      error
}

func (r RepoMock) GetAllProducts(context.Context) ([]*domain.Product, error) {
	return r.products, r.err
}

func (r RepoMock) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r RepoMock) Close() error { return nil }

var seeded = []*domain.Product{
	{ID: 1, Title: "Lightweight Walking Shoe", Price: 179.9, Image: "1.jpg"},
	{ID: 2, Title: "Trail Running Shoe", Price: 139.9, Image: "2.jpg"},
}

func serve(t *testing.T, repo repository.RepoInterface, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(repo, logger.Discard()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetProduct_Success(t *testing.T) {
	rec := serve(t, RepoMock{products: seeded}, "/products/2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"title":"Trail Running Shoe","price":139.9,"image":"2.jpg"}`, rec.Body.String())
}

func TestGetProduct_NotFound(t *testing.T) {
	rec := serve(t, RepoMock{products: seeded}, "/products/9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct_InvalidID(t *testing.T) {
	rec := serve(t, RepoMock{products: seeded}, "/products/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct_RepoError(t *testing.T) {
	rec := serve(t, RepoMock{err: errors.New("disk I/O error")}, "/products/1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetProducts(t *testing.T) {
	rec := serve(t, RepoMock{products: seeded}, "/products")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestGetProducts_WithSQLite(t *testing.T) {
	repo, err := repository.NewRepository(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	defer repo.Close()

	rec := serve(t, repo, "/products/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "Lightweight Walking Shoe", p.Title)
}
