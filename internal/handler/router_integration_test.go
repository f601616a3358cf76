package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-fund-api/internal/repository"
	"github.com/noah-isme/family-fund-api/internal/service"
)

type apiEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type testAPI struct {
	router *gin.Engine
	store  *repository.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	metrics := service.NewMetricsService()

	authSvc := service.NewAuthService(store.Users(), nil, nil, service.AuthConfig{AccessTokenSecret: "integration-secret", Issuer: "family-fund-test"})
	userSvc := service.NewUserService(store.Users(), nil, nil)
	_, created, err := userSvc.EnsureSuperAdmin(context.Background(), "root@family.local", "rootpass123", "Root")
	require.NoError(t, err)
	require.True(t, created)

	ledger := service.NewLedgerService(store.Beneficiaries(), store.Cases(), service.LedgerDeps{Audit: store.Users(), Metrics: metrics}, nil, nil)
	members := service.NewMemberService(store.Members(), store.Payments(), store.Users(), nil, service.MemberDefaults{}, nil, nil)
	dues := service.NewDuesService(store.Members(), store.Payments(), nil, metrics, nil, nil)
	reports := service.NewReportService(store.Cases(), store.Members(), store.Payments(), nil, nil, service.ReportServiceConfig{})
	exports := service.NewExportService(reports, nil, nil, nil, service.ExportConfig{}, nil)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Auth:          NewAuthHandler(authSvc),
		Users:         NewUserHandler(userSvc),
		Beneficiaries: NewBeneficiaryHandler(ledger),
		Cases:         NewCaseHandler(ledger),
		Members:       NewMemberHandler(members, dues),
		Reports:       NewReportHandler(reports, exports),
	}, RouterDeps{Tokens: authSvc, Audit: store.Users()})
	return &testAPI{router: router, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	var env apiEnvelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	rec, env := a.do(t, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func idOf(t *testing.T, env apiEnvelope) string {
	t.Helper()
	var obj struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &obj))
	require.NotEmpty(t, obj.ID)
	return obj.ID
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	root := api.login(t, "root@family.local", "rootpass123")

	rec, _ := api.do(t, http.MethodPost, "/users", root, `{"email":"Member@Family.local","password":"memberpass1","full_name":"Siti","role":"MEMBER"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	member := api.login(t, "member@family.local", "memberpass1")

	rec, env := api.do(t, http.MethodPost, "/beneficiaries", member, `{"name":"Aminah","is_family_member":true}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = api.do(t, http.MethodPost, "/beneficiaries", root, `{"name":"Aminah","is_family_member":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	beneficiaryID := idOf(t, env)

	rec, env = api.do(t, http.MethodPost, "/cases", member, `{"beneficiary_id":"`+beneficiaryID+`","case_type":"medical","title":"Surgery","requested_amount":"600"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	caseID := idOf(t, env)

	rec, _ = api.do(t, http.MethodPost, "/cases/"+caseID+"/approve", member, `{"approved_amount":"500"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/cases/"+caseID+"/disbursements", root, `{"amount":"100"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "pending cases cannot be paid")

	rec, _ = api.do(t, http.MethodPost, "/cases/"+caseID+"/approve", root, `{"approved_amount":"500"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = api.do(t, http.MethodPost, "/cases/"+caseID+"/disbursements", root, `{"amount":"300","payment_method":"transfer"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first struct {
		Completed bool `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.False(t, first.Completed)

	rec, env = api.do(t, http.MethodPost, "/cases/"+caseID+"/disbursements", root, `{"amount":"300"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "OVERPAYMENT", env.Error["code"])

	rec, env = api.do(t, http.MethodPost, "/cases/"+caseID+"/disbursements", root, `{"amount":"200"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.Completed)

	rec, env = api.do(t, http.MethodGet, "/cases/"+caseID, member, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Case struct {
			Status string `json:"status"`
		} `json:"case"`
		Disbursements []json.RawMessage `json:"disbursements"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "completed", detail.Case.Status)
	assert.Len(t, detail.Disbursements, 2)

	rec, env = api.do(t, http.MethodGet, "/reports/dashboard", member, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, env.Meta["cache_hit"])

	rec, _ = api.do(t, http.MethodGet, "/reports/cases/export?format=csv", root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Surgery")

	rec, _ = api.do(t, http.MethodGet, "/reports/cases/export?format=csv", member, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMembersAndDuesOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	root := api.login(t, "root@family.local", "rootpass123")

	rec, _ := api.do(t, http.MethodPost, "/members", root, `{"full_name":"Ali","takaful_monthly":"50","plus_monthly":"20","joined_at":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := api.do(t, http.MethodPost, "/payments/generate", root, `{"month":"2024-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Created int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Created)

	rec, env = api.do(t, http.MethodGet, "/payments?fund=takaful&from=2024-03&to=2024-03", root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payments))
	require.Len(t, payments, 1)

	rec, _ = api.do(t, http.MethodPost, "/payments/"+payments[0].ID+"/pay", root, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = api.do(t, http.MethodPost, "/payments/"+payments[0].ID+"/pay", root, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/payments?from=March", root, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/members", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMeAndPasswordChange(t *testing.T) {
	api := newTestAPI(t)
	root := api.login(t, "root@family.local", "rootpass123")

	rec, env := api.do(t, http.MethodGet, "/auth/me", root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "SUPERADMIN")

	rec, _ = api.do(t, http.MethodPost, "/auth/change-password", root, `{"old_password":"wrong-one","new_password":"newrootpass1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/auth/change-password", root, `{"old_password":"rootpass123","new_password":"newrootpass1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	api.login(t, "root@family.local", "newrootpass1")
}
