package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
	"github.com/edusync/edusync/core/report"
	inmemdb "github.com/edusync/edusync/storage/database/inmem"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

type testApp struct {
	server    Server
	db        *inmemdb.DB
	reportSvc *report.Service
	periodSvc *period.Service
}

func initApp(t *testing.T) *testApp {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("initApp() failed: %v", err)
	}

	conf := &core.Config{TestMode: true}
	periodRepo := inmemdb.NewPeriodRepository(db)
	periodSvc := period.NewService(periodRepo)
	reportSvc := report.NewService(
		db,
		inmemdb.NewReportRepository(db),
		periodRepo,
		inmemdb.NewAssessmentSource(db),
		inmemdb.NewSubjectSource(db),
		inmemdb.NewEnrollmentSource(db),
		inmemdb.NewAttendanceSource(db),
		conf,
		core.NopLogger{},
	)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	report.RegisterValidators(validate, translator)
	period.RegisterValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     core.NopLogger{},
		ReportSvc:  reportSvc,
		PeriodSvc:  periodSvc,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{server: server, db: db, reportSvc: reportSvc, periodSvc: periodSvc}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %s; wantData %s", rec.Body.Bytes(), tt.wantData)
	}
}
