package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/datemaker/internal/adapters/http/api"
	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	*repository.MemStore
	stats   types.ServiceStats
	workers []types.WorkerInfo
}

func (m *mockDependencies) GetStats() types.ServiceStats      { return m.stats }
func (m *mockDependencies) ActiveWorkers() []types.WorkerInfo { return m.workers }

type brokenReader struct{}

func (brokenReader) GetEvent(context.Context, int64) (model.Event, error) {
	return model.Event{}, errors.New("connection refused")
}

func (brokenReader) ListPairs(context.Context, int64) ([]model.Pair, error) { return nil, nil }

var startAt = time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)

func newDeps() *mockDependencies {
	store := repository.NewMemStore()
	ctx := context.Background()
	_, _ = store.CreateEvent(ctx, model.Event{ID: 7, StartTime: startAt, GroupCapacity: 4, State: model.StateNotStarted})
	_ = store.ReplacePairs(ctx, 7, []model.Pair{
		{EventID: 7, GroupNo: 1, TurnNo: 1, FirstUserID: 1, SecondUserID: 2},
		{EventID: 7, GroupNo: 1, TurnNo: 2, FirstUserID: 1, SecondUserID: 4},
		{EventID: 7, GroupNo: 2, TurnNo: 1, FirstUserID: 5, SecondUserID: 6},
	})
	return &mockDependencies{
		MemStore: store,
		stats: types.ServiceStats{
			Scheduler:  types.SchedulerStats{Ticks: 3, WorkersStarted: 2, WorkersActive: 1},
			QueueDepth: 5,
			Publisher:  "memory",
			Provider:   "static",
		},
		workers: []types.WorkerInfo{{RunID: "run-1", Kind: types.KindDating, EventID: 7, StartedAt: startAt}},
	}
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := http.NewServeMux()
		api.NewServer(newDeps()).Register(mux)

		Convey("Then /healthz serves the metrics exposition", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("Then /stats returns the service stats", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got types.ServiceStats
			So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
			So(got.QueueDepth, ShouldEqual, 5)
			So(got.Scheduler.Ticks, ShouldEqual, 3)
			So(got.Publisher, ShouldEqual, "memory")
		})

		Convey("Then /workers lists live workers", func() {
			w := serve(mux, http.MethodGet, "/workers")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got struct {
				Count   int                `json:"count"`
				Workers []types.WorkerInfo `json:"workers"`
			}
			So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
			So(got.Count, ShouldEqual, 1)
			So(got.Workers[0].EventID, ShouldEqual, 7)
			So(got.Workers[0].Kind, ShouldEqual, types.KindDating)
		})

		Convey("Then unknown paths are not found", func() {
			So(serve(mux, http.MethodGet, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then non-GET methods are rejected", func() {
			So(serve(mux, http.MethodPost, "/stats").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodDelete, "/workers").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodPut, "/events/7").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestWorkersHandler_Empty(t *testing.T) {
	Convey("Given no live workers", t, func() {
		deps := newDeps()
		deps.workers = nil
		h := api.NewWorkersHandler(deps)

		Convey("When listing workers", func() {
			w := httptest.NewRecorder()
			h.HandleWorkers(w, httptest.NewRequest(http.MethodGet, "/workers", nil))

			Convey("Then an empty array is returned rather than null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"workers":[]`)
				So(w.Body.String(), ShouldContainSubstring, `"count":0`)
			})
		})
	})
}

func TestEventsHandler_HandleGetEvent(t *testing.T) {
	Convey("Given an events handler over a stored event", t, func() {
		h := api.NewEventsHandler(newDeps())

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.HandleGetEvent(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		Convey("When fetching an existing event", func() {
			w := get("/events/7")

			Convey("Then the event and its schedule are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var got struct {
					ID            int64  `json:"id"`
					StartTime     string `json:"start_time"`
					GroupCapacity int    `json:"group_capacity"`
					State         string `json:"state"`
					Groups        int    `json:"groups"`
					Pairs         []struct {
						GroupNo     int   `json:"group_no"`
						TurnNo      int   `json:"turn_no"`
						FirstUserID int64 `json:"first_user_id"`
					} `json:"pairs"`
				}
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.ID, ShouldEqual, 7)
				So(got.StartTime, ShouldEqual, "2026-05-01T19:00:00Z")
				So(got.GroupCapacity, ShouldEqual, 4)
				So(got.State, ShouldEqual, string(model.StateNotStarted))
				So(got.Groups, ShouldEqual, 2)
				So(got.Pairs, ShouldHaveLength, 3)
				So(got.Pairs[1].TurnNo, ShouldEqual, 2)
			})
		})

		Convey("When the event does not exist", func() {
			w := get("/events/99")

			Convey("Then it returns not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
			})
		})

		Convey("When the id is malformed", func() {
			for _, path := range []string{"/events/", "/events/abc", "/events/-3", "/events/7/pairs"} {
				So(get(path).Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the store fails", func() {
			w := httptest.NewRecorder()
			api.NewEventsHandler(brokenReader{}).HandleGetEvent(w, httptest.NewRequest(http.MethodGet, "/events/7", nil))

			Convey("Then it returns an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, "connection refused")
			})
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler that fails", t, func() {
		called := false
		h := api.MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		}, "teapot")

		Convey("When serving a request", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))

			Convey("Then the inner status passes through", func() {
				So(called, ShouldBeTrue)
				So(w.Code, ShouldEqual, http.StatusTeapot)
			})
		})
	})
}
