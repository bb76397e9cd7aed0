package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// HealthResponse maps each dependency to "ok" or "error".
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type teamPath struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
	TeamID string `path:"teamID"`
}

type stopPath struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
	TeamID string `path:"teamID"`
	StopID string `path:"stopID"`
}

type huntPath struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
}

type streamQuery struct {
	Token string `query:"token"`
}

type completeStopInput struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
	TeamID string `path:"teamID"`
	StopID string `path:"stopID"`
	CompleteStopRequest
}

type adminHuntInput struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
	AdminHuntRequest
}

type adminTeamInput struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
	AdminTeamRequest
}

type adminStopPath struct {
	OrgID  string `path:"orgID"`
	HuntID string `path:"huntID"`
	StopID string `path:"stopID"`
}

type codePath struct {
	CodeID string `path:"codeID"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Huntgate API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Team admission, device locking and per-team stop ordering for scavenger hunts.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/verify
	postVerify, _ := r.NewOperationContext(http.MethodPost, "/api/verify")
	postVerify.SetSummary("Verify team code")
	postVerify.SetDescription("Resolves a team code, locks the device to the team and returns a signed lock token.")
	postVerify.AddReqStructure(VerifyRequest{})
	postVerify.AddRespStructure(VerifyResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postVerify.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postVerify.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postVerify.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postVerify.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postVerify.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postVerify)

	// GET /api/team
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/api/team")
	getTeam.SetSummary("Current team")
	getTeam.SetDescription("Returns the team bound to the Bearer lock token.")
	getTeam.AddRespStructure(TeamResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getTeam)

	// GET /api/orgs/{orgID}/hunts/{huntID}/teams/{teamID}/stops
	getStops, _ := r.NewOperationContext(http.MethodGet, "/api/orgs/{orgID}/hunts/{huntID}/teams/{teamID}/stops")
	getStops.SetSummary("Ordered stops")
	getStops.SetDescription("Returns the team's active stops in its order. Requires Bearer lock token.")
	getStops.AddReqStructure(teamPath{})
	getStops.AddRespStructure([]StopResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getStops.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getStops.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getStops.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(getStops)

	// POST .../stops/{stopID}/complete
	postComplete, _ := r.NewOperationContext(http.MethodPost, "/api/orgs/{orgID}/hunts/{huntID}/teams/{teamID}/stops/{stopID}/complete")
	postComplete.SetSummary("Complete stop")
	postComplete.SetDescription("Marks a stop done. The first completion time is kept. Requires Bearer lock token.")
	postComplete.AddReqStructure(completeStopInput{})
	postComplete.AddRespStructure(ProgressResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postComplete)

	// POST .../stops/{stopID}/hint
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/orgs/{orgID}/hunts/{huntID}/teams/{teamID}/stops/{stopID}/hint")
	postHint.SetSummary("Reveal hint")
	postHint.SetDescription("Reveals the next hint of a stop. Requires Bearer lock token.")
	postHint.AddReqStructure(stopPath{})
	postHint.AddRespStructure(HintResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postHint)

	// GET /api/orgs/{orgID}/hunts/{huntID}/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/orgs/{orgID}/hunts/{huntID}/leaderboard")
	getBoard.SetSummary("Leaderboard")
	getBoard.SetDescription("Completed stop counts per team.")
	getBoard.AddReqStructure(huntPath{})
	getBoard.AddRespStructure([]StandingResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getBoard)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE progress stream")
	getEvents.SetDescription("Server-Sent Events for the token's team. Pass the lock token as query parameter.")
	getEvents.AddReqStructure(streamQuery{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getEvents)

	// GET /api/events/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/events/ws")
	getWS.SetSummary("WebSocket progress stream")
	getWS.SetDescription("Upgrades to a WebSocket carrying the same events as /api/events.")
	getWS.AddReqStructure(streamQuery{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	getWS.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getWS)

	// GET /api/admin/orgs/{orgID}/hunts/{huntID}
	getHunt, _ := r.NewOperationContext(http.MethodGet, "/api/admin/orgs/{orgID}/hunts/{huntID}")
	getHunt.SetSummary("Get hunt")
	getHunt.SetDescription("Returns a hunt's configuration with every stop, active or not. Requires Bearer admin key.")
	getHunt.AddReqStructure(huntPath{})
	getHunt.AddRespStructure(AdminHuntResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getHunt)

	// PUT /api/admin/orgs/{orgID}/hunts/{huntID}
	putHunt, _ := r.NewOperationContext(http.MethodPut, "/api/admin/orgs/{orgID}/hunts/{huntID}")
	putHunt.SetSummary("Configure hunt")
	putHunt.SetDescription("Creates or replaces a hunt and its stops. Omitted stops are deactivated. Requires Bearer admin key.")
	putHunt.AddReqStructure(adminHuntInput{})
	putHunt.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	putHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(putHunt)

	// POST /api/admin/orgs/{orgID}/hunts/{huntID}/stops/{stopID}/deactivate
	postStopOff, _ := r.NewOperationContext(http.MethodPost, "/api/admin/orgs/{orgID}/hunts/{huntID}/stops/{stopID}/deactivate")
	postStopOff.SetSummary("Deactivate stop")
	postStopOff.SetDescription("Removes a stop from every team's order. Issued positions of other stops are kept. Requires Bearer admin key.")
	postStopOff.AddReqStructure(adminStopPath{})
	postStopOff.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStopOff.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postStopOff)

	// POST /api/admin/orgs/{orgID}/hunts/{huntID}/stops/{stopID}/activate
	postStopOn, _ := r.NewOperationContext(http.MethodPost, "/api/admin/orgs/{orgID}/hunts/{huntID}/stops/{stopID}/activate")
	postStopOn.SetSummary("Activate stop")
	postStopOn.SetDescription("Restores a deactivated stop. Fails with 409 when another active stop holds its position. Requires Bearer admin key.")
	postStopOn.AddReqStructure(adminStopPath{})
	postStopOn.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStopOn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postStopOn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStopOn)

	// POST /api/admin/orgs/{orgID}/hunts/{huntID}/teams
	postTeam, _ := r.NewOperationContext(http.MethodPost, "/api/admin/orgs/{orgID}/hunts/{huntID}/teams")
	postTeam.SetSummary("Create team")
	postTeam.SetDescription("Creates a team with its join code. Requires Bearer admin key.")
	postTeam.AddReqStructure(adminTeamInput{})
	postTeam.AddRespStructure(AdminTeamResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postTeam)

	// POST /api/admin/codes/{codeID}/deactivate
	postDeactivate, _ := r.NewOperationContext(http.MethodPost, "/api/admin/codes/{codeID}/deactivate")
	postDeactivate.SetSummary("Deactivate code")
	postDeactivate.SetDescription("Stops a team code from admitting new devices. Requires Bearer admin key.")
	postDeactivate.AddReqStructure(codePath{})
	postDeactivate.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postDeactivate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postDeactivate)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
