package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tourguide/internal/adapters/http/api"
	"github.com/okian/tourguide/pkg/logger"
)

type fakeReadiness struct{ ready bool }

func (f *fakeReadiness) Ready() bool { return f.ready }

func newMux(ready bool) *http.ServeMux {
	stats := api.StatsFunc(func(context.Context) any {
		return map[string]any{"cycles": 3, "tracker_state": "running"}
	})
	mux := http.NewServeMux()
	api.NewServer(stats, &fakeReadiness{ready: ready}).Register(mux)
	return mux
}

func serve(mux http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given the ops routes of a ready service", t, func() {
		mux := newMux(true)

		Convey("The health endpoint reports ok", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("The readiness endpoint reports ready", func() {
			w := serve(mux, http.MethodGet, "/readyz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("The stats endpoint returns the snapshot as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["tracker_state"], ShouldEqual, "running")
			So(body["cycles"], ShouldEqual, 3.0)
		})

		Convey("The metrics endpoint exposes request counters", func() {
			serve(mux, http.MethodGet, "/healthz")
			w := serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "tourguide_tracker_http_requests_total")
		})

		Convey("Other methods are not found", func() {
			So(serve(mux, http.MethodPost, "/healthz").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodDelete, "/stats").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Unknown paths are not found", func() {
			So(serve(mux, http.MethodGet, "/rewards").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given the ops routes of a service that is not ready", t, func() {
		mux := newMux(false)

		Convey("Health still reports ok but readiness fails", func() {
			So(serve(mux, http.MethodGet, "/healthz").Code, ShouldEqual, http.StatusOK)
			w := serve(mux, http.MethodGet, "/readyz")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "not_ready")
		})
	})

	Convey("Given a nil readiness checker", t, func() {
		mux := http.NewServeMux()
		api.NewServer(api.StatsFunc(func(context.Context) any { return struct{}{} }), nil).Register(mux)

		Convey("The service is always ready", func() {
			So(serve(mux, http.MethodGet, "/readyz").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestListenAndServe(t *testing.T) {
	Convey("Given an ops server on a free port", t, func() {
		_ = logger.Init()
		l, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		addr := l.Addr().String()
		So(l.Close(), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- api.ListenAndServe(ctx, addr, newMux(true)) }()

		Convey("When it is up and then cancelled", func() {
			var resp *http.Response
			for i := 0; i < 50; i++ {
				resp, err = http.Get("http://" + addr + "/healthz")
				if err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			_ = resp.Body.Close()
			cancel()

			Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not shut down")
				}
			})
		})
	})

	Convey("Given an address that cannot be bound", t, func() {
		_ = logger.Init()
		err := api.ListenAndServe(context.Background(), "bad-address", http.NewServeMux())

		Convey("Then ListenAndServe fails with ErrServe", func() {
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "ops server failed"), ShouldBeTrue)
		})
	})
}
