package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/aprende/academia/apps/api/echo"
	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/services/audit"
	"github.com/aprende/academia/services/email"
	"github.com/aprende/academia/storage/database/inmem"
	"github.com/aprende/academia/testutil"
)

func setup(t *testing.T) (Server, *inmemdb.DB) {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := core.NewValidator()

	// set up DB & services
	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	enrSvc := enrollment.NewService(inmemdb.NewEnrollmentRepository(db), conf, auditsvc.NewMock(), mailSvc, logger)
	rwdSvc := reward.NewService(inmemdb.NewRewardRepository(db))

	// set up server
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		EnrollmentSvc:  enrSvc,
		RewardSvc:      rwdSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return app, db
}

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

// decodeData decodes the "data" field of a response envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) string {
	t.Helper()
	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
	return env.Message
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
