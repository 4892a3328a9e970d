package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appidentity "github.com/backoffice/prdesk/internal/application/identity"
	apppricing "github.com/backoffice/prdesk/internal/application/pricing"
	"github.com/backoffice/prdesk/internal/infrastructure/auth"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/backoffice/prdesk/internal/infrastructure/metrics"
	"github.com/backoffice/prdesk/internal/infrastructure/persistence"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "router-test-secret-0123456789abcdef",
		AccessTokenExpiration: time.Hour,
		Issuer:                "prdesk-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	m := metrics.New()
	requests := persistence.NewGormPricingRequestRepository(db.DB)

	engine := New(Dependencies{
		HTTP:      config.HTTPConfig{MaxBodySize: 1 << 20},
		JWT:       jwtService,
		Blacklist: blacklist,
		Auth:      appidentity.NewAuthService(persistence.NewGormUserRepository(db.DB), jwtService, blacklist, nil),
		Workflow:  apppricing.NewWorkflowService(requests, m, nil),
		Metrics:   m,
		Health:    db,
		Version:   "test",
	})
	return &apiClient{t: t, engine: engine}
}

func (a *apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func (a *apiClient) register(username, role string) (string, string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Username: username,
		Email:    username + "@prdesk.test",
		Password: "secret-pass",
		Role:     role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(a.t, "bearer", resp.TokenType)
	return resp.AccessToken, resp.User.ID
}

func decodePR(t *testing.T, rec *httptest.ResponseRecorder) dto.PricingRequestWire {
	t.Helper()
	var pr dto.PricingRequestWire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pr), rec.Body.String())
	return pr
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []dto.PricingRequestWire {
	t.Helper()
	var prs []dto.PricingRequestWire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prs), rec.Body.String())
	return prs
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorBody {
	t.Helper()
	var body dto.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func shipment() dto.PricingRequestWire {
	return dto.PricingRequestWire{
		ShipmentDate:  "2024-03-15",
		AccountInfo:   "ACME-001",
		OriginAddress: "1 Dock Rd",
		OriginState:   "TX",
		OriginZip:     "75001",
		DestAddress:   "9 Port Ave",
		DestState:     "CA",
		DestZip:       "90001",
		Items: []dto.LineItemWire{{
			ItemName:       "Steel coils",
			CommodityClass: "70",
			TotalWeight:    500,
			HandlingUnit:   "PLT",
			NoOfPieces:     10,
			ContainerType:  "Pallet",
			NoOfPallets:    2,
		}},
	}
}

func TestAPI_SubmitAssignReject(t *testing.T) {
	api := newTestAPI(t)
	seToken, seID := api.register("sally", "SE")
	paA, paAID := api.register("alice", "PA")
	paB, _ := api.register("bob", "PA")

	rec := api.do(http.MethodPost, "/sales/pr/submit", seToken, shipment())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decodePR(t, rec)
	assert.Equal(t, "Under Review", submitted.SalesStatus)
	assert.Equal(t, "Under Review", submitted.AnalystStatus)
	assert.Equal(t, seID, submitted.CreatedBy)
	assert.Nil(t, submitted.AssignedTo)
	require.NotNil(t, submitted.SubmissionDate)
	require.Len(t, submitted.Items, 1)
	assert.Equal(t, 500.0, submitted.Items[0].TotalWeight)
	assert.Equal(t, "USA", submitted.OriginCountry)
	id := submitted.ID

	pool := decodeList(t, api.do(http.MethodGet, "/pa/pr", paB, nil))
	require.Len(t, pool, 1)
	assert.Equal(t, id, pool[0].ID)

	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/assign", paA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assigned := decodePR(t, rec)
	assert.Equal(t, "Active Status", assigned.AnalystStatus)
	assert.Equal(t, "Under Review", assigned.SalesStatus)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, paAID, *assigned.AssignedTo)

	assert.Empty(t, decodeList(t, api.do(http.MethodGet, "/pa/pr", paB, nil)), "claimed requests leave the pool")

	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/assign", paB, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, decodeErr(t, rec).Code)

	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/approve-reject", paB, dto.DecisionRequest{Action: "approve"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decodeErr(t, rec).Code)

	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/approve-reject", paA, dto.DecisionRequest{Action: "reject"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeErr(t, rec).Code)

	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/approve-reject", paA,
		dto.DecisionRequest{Action: "reject", Comment: "insufficient detail"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rejected := decodePR(t, rec)
	assert.Equal(t, "Closed", rejected.SalesStatus)
	assert.Equal(t, "Rejected", rejected.AnalystStatus)
	assert.Equal(t, "Rejected", rejected.FinalApprovalStatus)

	rec = api.do(http.MethodGet, "/sales/pr/"+id, seToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	seen := decodePR(t, rec)
	require.Len(t, seen.Comments, 1)
	assert.Equal(t, "insufficient detail", seen.Comments[0].CommentText)
	assert.Equal(t, "PA", seen.Comments[0].AuthorRole)
	assert.Equal(t, paAID, seen.Comments[0].AuthorID)

	mine := decodeList(t, api.do(http.MethodGet, "/pa/pr/my", paA, nil))
	require.Len(t, mine, 1)
	assert.Equal(t, "Closed", mine[0].SalesStatus)

	rec = api.do(http.MethodPut, "/sales/pr/"+id, seToken, shipment())
	assert.Equal(t, http.StatusConflict, rec.Code, "closed requests are frozen")

	body := api.do(http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, body, `prdesk_workflow_transitions_total{action="reject",result="ok"} 1`)
	assert.Contains(t, body, `prdesk_workflow_transitions_total{action="approve",result="FORBIDDEN"} 1`)
}

func TestAPI_DraftLifecycle(t *testing.T) {
	api := newTestAPI(t)
	seToken, _ := api.register("sally", "SE")
	otherSE, _ := api.register("sam", "SE")
	paToken, _ := api.register("alice", "PA")

	rec := api.do(http.MethodPost, "/sales/pr/save", seToken, shipment())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	draft := decodePR(t, rec)
	assert.Equal(t, "Draft", draft.SalesStatus)
	assert.Empty(t, draft.AnalystStatus)
	assert.Nil(t, draft.SubmissionDate)

	rec = api.do(http.MethodGet, "/pa/pr/"+draft.ID, paToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are invisible to analysts")

	rec = api.do(http.MethodGet, "/sales/pr/"+draft.ID, otherSE, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	edit := shipment()
	edit.Items[0].NoOfPieces = 12
	edit.DaylightProtect = false
	edit.InsuranceNote = "dropped"
	rec = api.do(http.MethodPut, "/sales/pr/"+draft.ID, seToken, edit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decodePR(t, rec)
	assert.Equal(t, 12, edited.Items[0].NoOfPieces)
	assert.Empty(t, edited.InsuranceNote)

	invalid := shipment()
	invalid.Items = nil
	rec = api.do(http.MethodPut, "/sales/pr/"+draft.ID, seToken, invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decodeErr(t, rec)
	assert.Equal(t, dto.ErrCodeValidation, verr.Code)
	require.NotEmpty(t, verr.Errors)
	assert.Equal(t, "items", verr.Errors[0].Field)

	badDate := shipment()
	badDate.ShipmentDate = "15/03/2024"
	rec = api.do(http.MethodPost, "/sales/pr/save", seToken, badDate)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := decodeList(t, api.do(http.MethodGet, "/sales/pr?sales_status=draft", seToken, nil))
	require.Len(t, list, 1)
	assert.Empty(t, decodeList(t, api.do(http.MethodGet, "/sales/pr?sales_status=Closed", seToken, nil)))

	rec = api.do(http.MethodGet, "/sales/pr?sales_status=bogus", seToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/sales/pr/"+draft.ID+"/send-to-pa", seToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Under Review", decodePR(t, rec).SalesStatus)

	rec = api.do(http.MethodDelete, "/sales/pr/"+draft.ID, seToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "only drafts can be deleted")

	rec = api.do(http.MethodPost, "/sales/pr/save", seToken, shipment())
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodePR(t, rec)
	rec = api.do(http.MethodDelete, "/sales/pr/"+second.ID, seToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/sales/pr/"+second.ID, seToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ActionRequiredAndResubmit(t *testing.T) {
	api := newTestAPI(t)
	seToken, _ := api.register("sally", "SE")
	paToken, _ := api.register("alice", "PA")

	id := decodePR(t, api.do(http.MethodPost, "/sales/pr/submit", seToken, shipment())).ID
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/pa/pr/"+id+"/assign", paToken, nil).Code)

	rec := api.do(http.MethodPost, "/pa/pr/"+id+"/approve-reject", paToken,
		dto.DecisionRequest{Action: "action_required", Comment: "add pallet dims"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Action Required", decodePR(t, rec).SalesStatus)

	revised := shipment()
	revised.Items[0].NoOfPallets = 3
	rec = api.do(http.MethodPost, "/sales/pr/"+id+"/resubmit", seToken, revised)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	back := decodePR(t, rec)
	assert.Equal(t, "Under Review", back.AnalystStatus)
	assert.Nil(t, back.AssignedTo, "resubmitted requests return to the pool")
	assert.Equal(t, 3, back.Items[0].NoOfPallets)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/pa/pr/"+id+"/assign", paToken, nil).Code)
	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/approve-reject", paToken, dto.DecisionRequest{Action: "approve"})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decodePR(t, rec)
	assert.Equal(t, "Closed", approved.SalesStatus)
	assert.Equal(t, "Approved", approved.AnalystStatus)

	rec = api.do(http.MethodPost, "/pa/pr/"+id+"/approve-reject", paToken, dto.DecisionRequest{Action: "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AuthAndRoleGuards(t *testing.T) {
	api := newTestAPI(t)
	seToken, seID := api.register("sally", "SE")
	paToken, _ := api.register("alice", "PA")

	rec := api.do(http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Username: "dup", Email: "sally@prdesk.test", Password: "secret-pass", Role: "SE",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Username: "x", Email: "not-an-email", Password: "secret-pass", Role: "SE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Username: "mgr", Email: "mgr@prdesk.test", Password: "secret-pass", Role: "MANAGER",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ROLE", decodeErr(t, rec).Code)

	rec = api.do(http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "SALLY@prdesk.test", Password: "secret-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "sally@prdesk.test", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/auth/profile", seToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, dto.UserResponse{ID: seID, Username: "sally", Email: "sally@prdesk.test", Role: "SE"}, profile)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/sales/pr", paToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/pa/pr", seToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/sales/pr", "", nil).Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/auth/logout", seToken, nil).Code)
	rec = api.do(http.MethodGet, "/auth/profile", seToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, decodeErr(t, rec).Code)
}

func TestAPI_Plumbing(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = api.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decodeErr(t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	api.engine.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeErr(t, out).Code)

	metricsBody := api.do(http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, metricsBody, `prdesk_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, metricsBody, `route="unmatched"`)
}
