package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/edusync/edusync/core/period"
)

func Test_periodApi_create(t *testing.T) {
	app := initApp(t)

	newPeriod := period.NewPeriod{
		Name:           "Trimester 1",
		Code:           "T1-2026",
		StartDate:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
		SchoolYear:     "2026-2027",
		EducationLevel: period.LevelMiddleSchool,
	}

	tests := []httpTest{
		{
			name:     "created",
			method:   http.MethodPost,
			path:     "/v1/periods",
			body:     marchallObj(t, newPeriod),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate code",
			method:   http.MethodPost,
			path:     "/v1/periods",
			body:     marchallObj(t, newPeriod),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/periods",
			body:     marchallObj(t, period.NewPeriod{Name: "Trimester 2"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "unknown education level",
			method: http.MethodPost,
			path:   "/v1/periods",
			body: marchallObj(t, period.NewPeriod{
				Name: "Trimester 2", Code: "T2-2026",
				StartDate: newPeriod.StartDate, EndDate: newPeriod.EndDate,
				SchoolYear: "2026-2027", EducationLevel: "university",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "end before start",
			method: http.MethodPost,
			path:   "/v1/periods",
			body: marchallObj(t, period.NewPeriod{
				Name: "Trimester 2", Code: "T2-2026",
				StartDate: newPeriod.EndDate, EndDate: newPeriod.StartDate,
				SchoolYear: "2026-2027", EducationLevel: period.LevelMiddleSchool,
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_periodApi_queryAndRetrieve(t *testing.T) {
	app := initApp(t)
	per := createTestPeriod(t, app)

	req, rec := newRequest(http.MethodGet, "/v1/periods")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: code = %d, want 200", rec.Code)
	}
	var periods []period.GradingPeriod
	if err := json.Unmarshal(rec.Body.Bytes(), &periods); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
	if len(periods) != 1 || periods[0].ID != per.ID {
		t.Errorf("periods = %+v, want the created period", periods)
	}

	t.Run("filter by education level", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/periods?education_level="+period.LevelHighSchool)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", rec.Code)
		}
		var periods []period.GradingPeriod
		if err := json.Unmarshal(rec.Body.Bytes(), &periods); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if len(periods) != 0 {
			t.Errorf("len(periods) = %d, want 0", len(periods))
		}
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/periods/"+per.ID)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want 200", rec.Code)
		}
	})

	t.Run("retrieve unknown", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: period.ErrNotFound.Error()}),
		}
		req, rec := newRequest(http.MethodGet, "/v1/periods/nope")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
