package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database/inmem"
)

const semester = "2024-2025-1"

func setup(t *testing.T) (Server, grade.Repository) {
	t.Helper()

	repo := inmemdb.NewGradeRepository(inmemdb.Open())
	validate, translator := grade.NewValidator()

	app := NewServer(ServerDeps{
		Conf: &core.Config{
			TestMode: true,
			AppName:  "Gradebook",
			Build:    "test",
			Server:   core.ServerConfig{DisableReqLogs: true},
		},
		Logger:     logsvc.NewConsoleLogger(log.New(io.Discard, "", 0), false),
		GradeSvc:   grade.NewService(repo, validate),
		Validate:   validate,
		Translator: translator,
	})
	return app, repo
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	form     url.Values
	wantCode int
	wantData []byte
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

func newFormRequest(method, path string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	return req, rec
}

func (tt httpTest) request() (*http.Request, *httptest.ResponseRecorder) {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	if tt.form != nil {
		return newFormRequest(method, tt.path, tt.form)
	}
	return newRequest(method, tt.path, tt.body)
}

func envelope(t *testing.T, code int, message string, data interface{}) []byte {
	return marshalObj(t, Response{Code: code, Message: message, Data: data})
}

func success(t *testing.T, data interface{}) []byte {
	return envelope(t, http.StatusOK, "success", data)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := tt.request()
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// decodeData decodes the data of a successful envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decodeData() failed: %v", err)
	}
	assert.Equal(t, http.StatusOK, env.Code, rec.Body.String())
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decodeData() failed: %v", err)
	}
}
