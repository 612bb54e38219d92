package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/deskflow/request-portal/internal/api/http"
	"github.com/deskflow/request-portal/internal/api/http/handlers"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/config"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/observability"
	"github.com/deskflow/request-portal/internal/repository"
	"github.com/deskflow/request-portal/internal/service"
)

type testAPI struct {
	app *fiber.App
	ids map[string]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	deps := service.Dependencies{Store: store, Dispatcher: events.NewInMemoryDispatcher()}
	projects := service.NewProjectService(deps)
	requests := service.NewRequestService(deps, projects)
	tickets := service.NewTicketService(deps)
	transfers := service.NewTransferService(deps, "")
	comments := service.NewCommentService(deps, 0)

	users := store.Repos().Users
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "router-test",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            bcrypt.MinCost,
	}, users, nil)
	require.NoError(t, authService.EnsureBootstrapUser(ctx, "boss@example.com", "boss-password"))
	boss, err := users.GetByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	ids := map[string]string{boss.Email: boss.ID}
	for _, input := range []service.RegisterUserInput{
		{Name: "Nora", Email: "nora@example.com", Password: "nora-password", Role: domain.RoleNT},
		{Name: "Luis", Email: "luis@example.com", Password: "luis-password", Role: domain.RoleNT},
		{Name: "Tomas", Email: "tomas@example.com", Password: "tomas-password", Role: domain.RoleTI},
	} {
		user, err := authService.RegisterUser(ctx, boss.Actor(), input)
		require.NoError(t, err)
		ids[user.Email] = user.ID
	}

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("request-portal", "test", metrics, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Requests:       handlers.NewRequestsHandler(requests, projects, transfers),
		Tickets:        handlers.NewTicketsHandler(tickets, transfers),
		Projects:       handlers.NewProjectsHandler(projects),
		Comments:       handlers.NewCommentsHandler(comments),
		Transfers:      handlers.NewTransfersHandler(transfers),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
	})
	return &testAPI{app: app, ids: ids}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := a.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, status, body)
	return data(body)["token"].(string)
}

func data(body map[string]any) map[string]any {
	return body["data"].(map[string]any)
}

func errorCode(body map[string]any) string {
	return body["error"].(map[string]any)["code"].(string)
}

func faultReport() map[string]any {
	return map[string]any{
		"title": "Printer jams",
		"kind":  "reporte_fallo",
		"details": map[string]any{
			"requester": map[string]any{"name": "Ana", "email": "ana@example.com"},
			"problem":   map[string]any{"situation": "Paper jams on every job"},
		},
	}
}

func TestHealthAndAuthentication(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = api.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/requests", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = api.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "nora@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = api.do(t, fiber.MethodGet, "/api/v1/requests", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = api.do(t, fiber.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRequestIDPropagation(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/requests", nil)
	req.Header.Set(httptransport.RequestIDHeader, "trace-123")
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get(httptransport.RequestIDHeader))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "trace-123", body["error"].(map[string]any)["request_id"])

	resp, err = api.app.Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(httptransport.RequestIDHeader), 36)
}

func TestUserManagementRequiresManagement(t *testing.T) {
	api := newTestAPI(t)
	nt := api.login(t, "nora@example.com", "nora-password")
	boss := api.login(t, "boss@example.com", "boss-password")
	newUser := map[string]string{"name": "Lia", "email": "lia@example.com", "password": "lia-password", "role": "ti"}

	status, body := api.do(t, fiber.MethodPost, "/api/v1/auth/users", nt, newUser)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = api.do(t, fiber.MethodPost, "/api/v1/auth/users", boss, newUser)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "lia@example.com", data(body)["email"])
	assert.NotContains(t, data(body), "password_hash")

	status, body = api.do(t, fiber.MethodGet, "/api/v1/auth/users?role=ti", boss, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)
}

func TestRequestEndpoints(t *testing.T) {
	api := newTestAPI(t)
	nt := api.login(t, "nora@example.com", "nora-password")
	ti := api.login(t, "tomas@example.com", "tomas-password")

	status, body := api.do(t, fiber.MethodPost, "/api/v1/requests", nt, map[string]any{"kind": "reporte_fallo"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = api.do(t, fiber.MethodPost, "/api/v1/requests", nt, faultReport())
	require.Equal(t, fiber.StatusCreated, status, body)
	code := data(body)["code"].(string)
	assert.True(t, strings.HasPrefix(code, "SOL-"))
	assert.Equal(t, "pendiente_evaluacion_nt", data(body)["state"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/requests/"+code, ti, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Printer jams", data(body)["title"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/requests?kind=reporte_fallo", nt, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = api.do(t, fiber.MethodGet, "/api/v1/requests/"+code+"/transitions", nt, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body["data"], "completado")

	status, body = api.do(t, fiber.MethodGet, "/api/v1/requests/SOL-NOPE", nt, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = api.do(t, fiber.MethodPost, "/api/v1/requests/"+code+"/transfer", ti, map[string]string{"motive": "hardware"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "UNAUTHORIZED_TRANSITION", errorCode(body))

	status, body = api.do(t, fiber.MethodPost, "/api/v1/requests/"+code+"/transfer", nt, map[string]string{"motive": "hardware"})
	require.Equal(t, fiber.StatusCreated, status, body)
	destination := data(body)["destination"].(map[string]any)["code"].(string)
	assert.True(t, strings.HasPrefix(destination, "TKT-"))

	status, body = api.do(t, fiber.MethodGet, "/api/v1/transfers/"+destination, ti, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, data(body)["outgoing"])
	incoming := data(body)["incoming"].(map[string]any)
	assert.Equal(t, code, incoming["origin"].(map[string]any)["code"])

	status, body = api.do(t, fiber.MethodPost, "/api/v1/requests/"+code+"/transfer", nt, map[string]string{"motive": "again"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_TRANSFERRED", errorCode(body))

	status, body = api.do(t, fiber.MethodGet, "/api/v1/tickets/"+destination, ti, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "abierto", data(body)["state"])
}

func TestCommunicationAndPublicResponse(t *testing.T) {
	api := newTestAPI(t)
	nt := api.login(t, "nora@example.com", "nora-password")

	status, body := api.do(t, fiber.MethodPost, "/api/v1/requests", nt, faultReport())
	require.Equal(t, fiber.StatusCreated, status, body)
	code := data(body)["code"].(string)
	commentsPath := "/api/v1/requests/" + code + "/comments"

	status, body = api.do(t, fiber.MethodPost, commentsPath, nt, map[string]string{
		"type": "comunicacion", "content": "Which model?", "recipient": "ana@example.com",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	token := data(body)["response_token"].(string)
	require.NotEmpty(t, token)

	status, body = api.do(t, fiber.MethodPost, "/api/v1/responses/"+token, "", map[string]string{"content": "An HP 4200"})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "respuesta", data(body)["type"])
	assert.Equal(t, "ana@example.com", data(body)["author_label"])

	status, body = api.do(t, fiber.MethodPost, "/api/v1/responses/"+token, "", map[string]string{"content": "again"})
	assert.Equal(t, fiber.StatusGone, status)
	assert.Equal(t, "TOKEN_ALREADY_USED", errorCode(body))

	status, body = api.do(t, fiber.MethodGet, commentsPath, nt, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 3)
}

func TestTicketEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ti := api.login(t, "tomas@example.com", "tomas-password")
	nt := api.login(t, "nora@example.com", "nora-password")

	status, body := api.do(t, fiber.MethodPost, "/api/v1/tickets", ti, map[string]any{
		"title": "VPN down", "description": "Cannot connect", "category": "red",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	code := data(body)["code"].(string)

	status, body = api.do(t, fiber.MethodGet, "/api/v1/tickets/"+code+"/transitions", ti, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body["data"], "en_proceso")

	status, body = api.do(t, fiber.MethodPost, "/api/v1/tickets/"+code+"/transitions", nt, map[string]string{"to": "en_proceso"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "UNAUTHORIZED_TRANSITION", errorCode(body))

	status, body = api.do(t, fiber.MethodPost, "/api/v1/tickets/"+code+"/transitions", ti, map[string]string{"to": "en_proceso"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "en_proceso", data(body)["state"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/tickets?state=en_proceso,abierto", ti, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func projectRequest() map[string]any {
	return map[string]any{
		"title": "Vendor portal",
		"kind":  "proyecto_nuevo_interno",
		"details": map[string]any{
			"requester": map[string]any{"name": "Ana", "email": "ana@example.com"},
			"sponsor":   map[string]any{"name": "Carla", "email": "carla@example.com"},
			"problem":   map[string]any{"situation": "Vendors email invoices by hand"},
			"solution":  map[string]any{"description": "Self-service portal"},
			"benefits":  map[string]any{"description": "Fewer lost invoices"},
		},
	}
}

func TestProjectEndpoints(t *testing.T) {
	api := newTestAPI(t)
	nt := api.login(t, "nora@example.com", "nora-password")
	dev := api.login(t, "luis@example.com", "luis-password")
	boss := api.login(t, "boss@example.com", "boss-password")

	status, body := api.do(t, fiber.MethodPost, "/api/v1/requests", nt, projectRequest())
	require.Equal(t, fiber.StatusCreated, status, body)
	code := data(body)["code"].(string)
	assert.Nil(t, data(body)["project"])
	requestPath := "/api/v1/requests/" + code

	status, body = api.do(t, fiber.MethodGet, requestPath+"/project", nt, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	for _, to := range []string{"en_estudio", "pendiente_aprobacion_gerencia"} {
		status, body = api.do(t, fiber.MethodPost, requestPath+"/transitions", nt, map[string]string{"to": to})
		require.Equal(t, fiber.StatusOK, status, body)
	}
	start := time.Now().UTC().Add(-48 * time.Hour)
	status, body = api.do(t, fiber.MethodPost, requestPath+"/transitions", boss, map[string]any{
		"to":            "agendado",
		"planned_start": start,
		"planned_end":   start.Add(10 * 24 * time.Hour),
		"lead_id":       api.ids["nora@example.com"],
	})
	require.Equal(t, fiber.StatusOK, status, body)
	link, ok := data(body)["project"].(map[string]any)
	require.True(t, ok, "scheduling links the project: %v", body)
	projectID := link["id"].(string)
	assert.Equal(t, "agendado", link["state"])

	status, body = api.do(t, fiber.MethodGet, requestPath, dev, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, projectID, data(body)["project"].(map[string]any)["id"])

	status, body = api.do(t, fiber.MethodGet, requestPath+"/project", dev, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, projectID, data(body)["id"])
	assert.Equal(t, code, data(body)["request_code"])

	status, body = api.do(t, fiber.MethodPost, requestPath+"/transitions", nt, map[string]string{"to": "en_desarrollo"})
	require.Equal(t, fiber.StatusOK, status, body)

	projectPath := "/api/v1/projects/" + projectID
	status, body = api.do(t, fiber.MethodGet, projectPath+"/progress", dev, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, float64(10), data(body)["planned_days"])
	assert.Equal(t, float64(0), data(body)["practical"])

	status, body = api.do(t, fiber.MethodPost, projectPath+"/tasks", dev, map[string]any{"name": "Sneaky task"})
	assert.Equal(t, fiber.StatusForbidden, status, body)

	var taskIDs []string
	for _, task := range []map[string]any{
		{"name": "Design schema", "duration_days": 2, "assignee_id": api.ids["luis@example.com"]},
		{"name": "Vendor onboarding", "duration_days": 3},
	} {
		status, body = api.do(t, fiber.MethodPost, projectPath+"/tasks", nt, task)
		require.Equal(t, fiber.StatusCreated, status, body)
		taskIDs = append(taskIDs, data(body)["id"].(string))
	}

	status, body = api.do(t, fiber.MethodGet, projectPath+"/tasks", nt, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2, "the lead sees every task")

	status, body = api.do(t, fiber.MethodGet, projectPath+"/tasks", dev, nil)
	require.Equal(t, fiber.StatusOK, status)
	visible := body["data"].([]any)
	require.Len(t, visible, 1, "others only see their assignments")
	assert.Equal(t, taskIDs[0], visible[0].(map[string]any)["id"])

	status, body = api.do(t, fiber.MethodPatch, projectPath+"/tasks/"+taskIDs[0]+"/progress", dev, map[string]int{"completion": 50})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, float64(50), data(body)["completion"])

	status, body = api.do(t, fiber.MethodPost, projectPath+"/pause", nt, map[string]string{"reason": "Vendor audit"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "pausado", data(body)["state"])

	status, body = api.do(t, fiber.MethodPatch, projectPath+"/tasks/"+taskIDs[0]+"/progress", dev, map[string]int{"completion": 80})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "PROJECT_PAUSED", errorCode(body))

	status, body = api.do(t, fiber.MethodGet, projectPath+"/pauses", dev, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = api.do(t, fiber.MethodGet, projectPath+"/progress", dev, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(20), data(body)["practical"], "50% of the 2-day task over 5 days of work")
}
