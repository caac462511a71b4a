package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaspark/hub/internal/api/response"
	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/ingest"
	"github.com/ideaspark/hub/internal/layout"
	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/internal/projection"
)

// mockIdeasService mocks IdeasService for handler tests.
type mockIdeasService struct {
	createFunc   func(ctx context.Context, req *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error)
	importFunc   func(ctx context.Context, req *models.ImportIdeasRequest) (*models.ImportIdeasResponse, error)
	getFunc      func(ctx context.Context, id int64) (*models.Idea, error)
	listFunc     func(ctx context.Context, filters *models.ListIdeasFilters) (*models.ListIdeasResponse, error)
	deleteFunc   func(ctx context.Context, id int64) error
	backfillFunc func(ctx context.Context) (*models.BackfillResponse, error)
}

func (m *mockIdeasService) CreateIdea(ctx context.Context, req *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}

	return &models.CreateIdeaResponse{}, nil
}

func (m *mockIdeasService) ImportIdeas(ctx context.Context, req *models.ImportIdeasRequest) (*models.ImportIdeasResponse, error) {
	if m.importFunc != nil {
		return m.importFunc(ctx, req)
	}

	return &models.ImportIdeasResponse{}, nil
}

func (m *mockIdeasService) GetIdea(ctx context.Context, id int64) (*models.Idea, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}

	return &models.Idea{ID: id}, nil
}

func (m *mockIdeasService) ListIdeas(ctx context.Context, filters *models.ListIdeasFilters) (*models.ListIdeasResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filters)
	}

	return &models.ListIdeasResponse{Data: []models.Idea{}}, nil
}

func (m *mockIdeasService) DeleteIdea(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}

	return nil
}

func (m *mockIdeasService) BackfillEmbeddings(ctx context.Context) (*models.BackfillResponse, error) {
	if m.backfillFunc != nil {
		return m.backfillFunc(ctx)
	}

	return &models.BackfillResponse{}, nil
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) response.ProblemDetails {
	t.Helper()

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func TestIdeasHandler_Create(t *testing.T) {
	t.Run("created idea with match", func(t *testing.T) {
		mock := &mockIdeasService{
			createFunc: func(_ context.Context, req *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error) {
				assert.Equal(t, "ana", req.Author)
				assert.Equal(t, "solar kiosks", req.Content)

				return &models.CreateIdeaResponse{
					Idea:        models.Idea{ID: 7, Author: "ana", Content: "solar kiosks", HasEmbedding: true},
					MatchStatus: models.MatchStatusMatched,
					Matches:     []models.IdeaMatch{{ID: 3, Author: "ben", Content: "solar benches", Score: 0.71}},
				}, nil
			},
		}
		h := NewIdeasHandler(mock)

		req := httptest.NewRequest(http.MethodPost, "/v1/ideas", strings.NewReader(`{"author":"ana","content":"solar kiosks"}`))
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp models.CreateIdeaResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.Idea.ID)
		assert.Equal(t, models.MatchStatusMatched, resp.MatchStatus)
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, "ben", resp.Matches[0].Author)
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		h := NewIdeasHandler(&mockIdeasService{})

		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas", strings.NewReader(`{"author":`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing content fails validation", func(t *testing.T) {
		called := false
		mock := &mockIdeasService{
			createFunc: func(context.Context, *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error) {
				called = true

				return nil, nil
			},
		}
		h := NewIdeasHandler(mock)

		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas", strings.NewReader(`{"author":"ana"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
		assert.Equal(t, "Validation Error", decodeProblem(t, rec).Title)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "service validation error",
			err:        huberrors.NewValidationError("embedding", "embedding has dimension 2, want 3"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "provider failure",
			err:        huberrors.NewUnavailableError("embedding provider", false, errors.New("500 from upstream")),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "circuit open",
			err:        huberrors.NewUnavailableError("embedding provider", true, errors.New("circuit breaker is open")),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "store failure",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockIdeasService{
				createFunc: func(context.Context, *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error) {
					return nil, fmt.Errorf("create idea: %w", tt.err)
				},
			}
			h := NewIdeasHandler(mock)

			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas", strings.NewReader(`{"author":"ana","content":"x"}`)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			}

			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "connection reset")
			}
		})
	}
}

func TestIdeasHandler_Import(t *testing.T) {
	t.Run("imports ideas", func(t *testing.T) {
		mock := &mockIdeasService{
			importFunc: func(_ context.Context, req *models.ImportIdeasRequest) (*models.ImportIdeasResponse, error) {
				require.Len(t, req.Ideas, 2)
				assert.Equal(t, []float32{0.1, 0.2}, req.Ideas[1].Embedding)

				return &models.ImportIdeasResponse{Data: []models.Idea{{ID: 1}, {ID: 2}}, Count: 2}, nil
			},
		}
		h := NewIdeasHandler(mock)

		body := `{"ideas":[{"author":"a","content":"one"},{"author":"b","content":"two","embedding":[0.1,0.2]}]}`
		rec := httptest.NewRecorder()
		h.Import(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/import", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp models.ImportIdeasResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("empty list fails validation", func(t *testing.T) {
		h := NewIdeasHandler(&mockIdeasService{})

		rec := httptest.NewRecorder()
		h.Import(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/import", strings.NewReader(`{"ideas":[]}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid element is reported by path", func(t *testing.T) {
		h := NewIdeasHandler(&mockIdeasService{})

		body := `{"ideas":[{"author":"a","content":"one"},{"author":"b"}]}`
		rec := httptest.NewRecorder()
		h.Import(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/import", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		problem := decodeProblem(t, rec)
		require.NotEmpty(t, problem.Errors)
		assert.Equal(t, "ideas[1].content", problem.Errors[0].Location)
	})

	t.Run("limit exceeded returns 413", func(t *testing.T) {
		mock := &mockIdeasService{
			importFunc: func(context.Context, *models.ImportIdeasRequest) (*models.ImportIdeasResponse, error) {
				return nil, huberrors.NewLimitExceededError("at most 100 ideas per import")
			},
		}
		h := NewIdeasHandler(mock)

		rec := httptest.NewRecorder()
		h.Import(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/import", strings.NewReader(`{"ideas":[{"author":"a","content":"b"}]}`)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestIdeasHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		getErr     error
		wantStatus int
	}{
		{name: "found", id: "42", wantStatus: http.StatusOK},
		{name: "not found", id: "42", getErr: huberrors.NewNotFoundError("idea", ""), wantStatus: http.StatusNotFound},
		{name: "non-numeric id", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "zero id", id: "0", wantStatus: http.StatusBadRequest},
		{name: "missing id", id: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockIdeasService{
				getFunc: func(_ context.Context, id int64) (*models.Idea, error) {
					if tt.getErr != nil {
						return nil, tt.getErr
					}

					return &models.Idea{ID: id, Author: "ana", Content: "x"}, nil
				},
			}
			h := NewIdeasHandler(mock)

			req := httptest.NewRequest(http.MethodGet, "/v1/ideas/"+tt.id, http.NoBody)
			req.SetPathValue("id", tt.id)

			rec := httptest.NewRecorder()
			h.Get(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var idea models.Idea
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idea))
				assert.Equal(t, int64(42), idea.ID)
			}
		})
	}
}

func TestIdeasHandler_List(t *testing.T) {
	t.Run("filters are decoded", func(t *testing.T) {
		mock := &mockIdeasService{
			listFunc: func(_ context.Context, filters *models.ListIdeasFilters) (*models.ListIdeasResponse, error) {
				require.NotNil(t, filters.ExcludeAuthor)
				assert.Equal(t, "ana", *filters.ExcludeAuthor)
				assert.Equal(t, 10, filters.Limit)
				assert.Equal(t, 20, filters.Offset)

				return &models.ListIdeasResponse{Data: []models.Idea{}, Total: 0, Limit: 10, Offset: 20}, nil
			},
		}
		h := NewIdeasHandler(mock)

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/ideas?exclude_author=ana&limit=10&offset=20", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":[],"total":0,"limit":10,"offset":20}`, rec.Body.String())
	})

	t.Run("limit above maximum", func(t *testing.T) {
		h := NewIdeasHandler(&mockIdeasService{})

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/ideas?limit=5000", http.NoBody))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestIdeasHandler_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		var deleted int64

		mock := &mockIdeasService{
			deleteFunc: func(_ context.Context, id int64) error {
				deleted = id

				return nil
			},
		}
		h := NewIdeasHandler(mock)

		req := httptest.NewRequest(http.MethodDelete, "/v1/ideas/9", http.NoBody)
		req.SetPathValue("id", "9")

		rec := httptest.NewRecorder()
		h.Delete(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(9), deleted)
	})

	t.Run("not found", func(t *testing.T) {
		mock := &mockIdeasService{
			deleteFunc: func(context.Context, int64) error {
				return huberrors.NewNotFoundError("idea", "")
			},
		}
		h := NewIdeasHandler(mock)

		req := httptest.NewRequest(http.MethodDelete, "/v1/ideas/9", http.NoBody)
		req.SetPathValue("id", "9")

		rec := httptest.NewRecorder()
		h.Delete(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Idea not found", decodeProblem(t, rec).Detail)
	})
}

func TestIdeasHandler_Backfill(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		mock := &mockIdeasService{
			backfillFunc: func(context.Context) (*models.BackfillResponse, error) {
				return &models.BackfillResponse{Enqueued: 4}, nil
			},
		}
		h := NewIdeasHandler(mock)

		rec := httptest.NewRecorder()
		h.Backfill(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/backfill-embeddings", http.NoBody))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"enqueued":4}`, rec.Body.String())
	})

	t.Run("no provider", func(t *testing.T) {
		mock := &mockIdeasService{
			backfillFunc: func(context.Context) (*models.BackfillResponse, error) {
				return nil, huberrors.NewUnavailableError("embedding provider", false, errors.New("not configured"))
			},
		}
		h := NewIdeasHandler(mock)

		rec := httptest.NewRecorder()
		h.Backfill(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/backfill-embeddings", http.NoBody))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

type mockMatchService struct {
	matchFunc func(ctx context.Context, req *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error)
	embedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockMatchService) Match(ctx context.Context, req *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error) {
	return m.matchFunc(ctx, req)
}

func (m *mockMatchService) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFunc(ctx, text)
}

func TestMatchHandler_Match(t *testing.T) {
	t.Run("embedding query", func(t *testing.T) {
		mock := &mockMatchService{
			matchFunc: func(_ context.Context, req *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error) {
				assert.Equal(t, []float32{1, 0, 0}, req.Embedding)
				assert.Equal(t, "ana", req.ExcludeAuthor)
				require.NotNil(t, req.Threshold)
				assert.InDelta(t, 0.5, *req.Threshold, 1e-9)

				return &models.MatchIdeasResponse{
					Data:      []models.IdeaMatch{{ID: 2, Author: "ben", Content: "x", Score: 0.9}},
					Threshold: 0.5,
				}, nil
			},
		}
		h := NewMatchHandler(mock)

		body := `{"embedding":[1,0,0],"exclude_author":"ana","threshold":0.5}`
		rec := httptest.NewRecorder()
		h.Match(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/match", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp models.MatchIdeasResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, int64(2), resp.Data[0].ID)
	})

	t.Run("no match encodes empty list", func(t *testing.T) {
		mock := &mockMatchService{
			matchFunc: func(context.Context, *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error) {
				return &models.MatchIdeasResponse{Data: []models.IdeaMatch{}, Threshold: 0.4}, nil
			},
		}
		h := NewMatchHandler(mock)

		rec := httptest.NewRecorder()
		h.Match(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/match", strings.NewReader(`{"text":"bikes","exclude_author":"ana"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":[],"threshold":0.4}`, rec.Body.String())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		h := NewMatchHandler(&mockMatchService{})

		rec := httptest.NewRecorder()
		h.Match(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/match", strings.NewReader(`{"embedding":[1],"threshold":1.5}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service validation error", func(t *testing.T) {
		mock := &mockMatchService{
			matchFunc: func(context.Context, *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error) {
				return nil, huberrors.NewValidationError("embedding", "exactly one of embedding and text is required")
			},
		}
		h := NewMatchHandler(mock)

		rec := httptest.NewRecorder()
		h.Match(rec, httptest.NewRequest(http.MethodPost, "/v1/ideas/match", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeProblem(t, rec).Detail, "exactly one")
	})
}

func TestMatchHandler_Embed(t *testing.T) {
	t.Run("returns the embedding", func(t *testing.T) {
		mock := &mockMatchService{
			embedFunc: func(_ context.Context, text string) ([]float32, error) {
				assert.Equal(t, "solar kiosks", text)

				return []float32{0.6, 0.8}, nil
			},
		}
		h := NewMatchHandler(mock)

		rec := httptest.NewRecorder()
		h.Embed(rec, httptest.NewRequest(http.MethodPost, "/v1/embed", strings.NewReader(`{"text":"solar kiosks"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"embedding":[0.6,0.8],"dimensions":2}`, rec.Body.String())
	})

	t.Run("missing text", func(t *testing.T) {
		h := NewMatchHandler(&mockMatchService{})

		rec := httptest.NewRecorder()
		h.Embed(rec, httptest.NewRequest(http.MethodPost, "/v1/embed", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider temporarily unavailable", func(t *testing.T) {
		mock := &mockMatchService{
			embedFunc: func(context.Context, string) ([]float32, error) {
				return nil, huberrors.NewUnavailableError("embedding provider", true, errors.New("circuit open"))
			},
		}
		h := NewMatchHandler(mock)

		rec := httptest.NewRecorder()
		h.Embed(rec, httptest.NewRequest(http.MethodPost, "/v1/embed", strings.NewReader(`{"text":"x"}`)))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})
}

type mockLayoutService struct {
	computeFunc func(ctx context.Context, q *models.LayoutQuery) (layout.Layout, error)
}

func (m *mockLayoutService) Compute(ctx context.Context, q *models.LayoutQuery) (layout.Layout, error) {
	return m.computeFunc(ctx, q)
}

type staticSnapshot struct {
	snap models.LayoutSnapshot
}

func (s staticSnapshot) Snapshot() models.LayoutSnapshot {
	return s.snap
}

func TestLayoutHandler_Get(t *testing.T) {
	t.Run("query is passed to the service", func(t *testing.T) {
		mock := &mockLayoutService{
			computeFunc: func(_ context.Context, q *models.LayoutQuery) (layout.Layout, error) {
				require.NotNil(t, q.Margin)
				assert.InDelta(t, 0.1, *q.Margin, 1e-9)
				assert.Equal(t, 100, q.Limit)

				return layout.Layout{
					Status:   layout.StatusOK,
					Points:   []layout.Point{{ID: 1, X: 0.5, Y: 0.5, ViewX: 400, ViewY: 300}},
					Edges:    []layout.Edge{},
					Accepted: 1,
					Dropped:  map[ingest.DropReason]int{},
				}, nil
			},
		}
		h := NewLayoutHandler(mock, staticSnapshot{})

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/layout?margin=0.1&limit=100", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)

		var out layout.Layout
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, layout.StatusOK, out.Status)
		require.Len(t, out.Points, 1)
	})

	t.Run("insufficient data is a 200", func(t *testing.T) {
		mock := &mockLayoutService{
			computeFunc: func(context.Context, *models.LayoutQuery) (layout.Layout, error) {
				return layout.Insufficient(ingest.Report{Accepted: 1}), nil
			},
		}
		h := NewLayoutHandler(mock, staticSnapshot{})

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/layout", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "insufficient_data", body["status"])
		assert.Equal(t, []any{}, body["points"])
		assert.Equal(t, []any{}, body["edges"])
	})

	t.Run("projection failure is a 500", func(t *testing.T) {
		mock := &mockLayoutService{
			computeFunc: func(context.Context, *models.LayoutQuery) (layout.Layout, error) {
				return layout.Layout{}, fmt.Errorf("build layout: %w", projection.ErrProjectionFailed)
			},
		}
		h := NewLayoutHandler(mock, staticSnapshot{})

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/layout", http.NoBody))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Projection Failed", decodeProblem(t, rec).Title)
	})

	t.Run("invalid margin", func(t *testing.T) {
		h := NewLayoutHandler(&mockLayoutService{}, staticSnapshot{})

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/layout?margin=0.5", http.NoBody))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLayoutHandler_Snapshot(t *testing.T) {
	computed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := models.LayoutSnapshot{
		Layout: layout.Layout{
			Status:  layout.StatusOK,
			Points:  []layout.Point{},
			Edges:   []layout.Edge{},
			Dropped: map[ingest.DropReason]int{},
		},
		Generation: 3,
		ComputedAt: &computed,
	}
	h := NewLayoutHandler(&mockLayoutService{}, staticSnapshot{snap: snap})

	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/v1/layout/snapshot", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 3.0, body["generation"], 1e-9)
	assert.Equal(t, "2026-03-01T12:00:00Z", body["computed_at"])
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(context.Context) error {
	return m.err
}

func TestHealthHandler(t *testing.T) {
	t.Run("check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil).Check(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("ready with reachable database", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(mockPinger{}).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready when ping fails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(mockPinger{err: errors.New("dial tcp: refused")}).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
