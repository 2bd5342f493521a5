package httpx

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/testfarm/broker/internal/service"
)

// ServerIdentity is reported on the root endpoint.
const ServerIdentity = "testfarm broker"

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Dispatcher *service.Dispatcher
	Results    *service.ResultStore
	Output     *service.OutputStream
	Artifacts  *service.ArtifactStore
	Registry   *service.Registry

	// Health check dependencies
	DB           *sql.DB
	OutputHealth OutputHealthChecker

	// MaxArtifactBytes caps a single artifact upload.
	MaxArtifactBytes int64
	Logger           *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Dispatcher, Logger: services.Logger}
	resultHandlers := &ResultHandlers{
		Results:          services.Results,
		Output:           services.Output,
		Artifacts:        services.Artifacts,
		MaxArtifactBytes: services.MaxArtifactBytes,
		Logger:           services.Logger,
	}
	agentHandlers := &AgentHandlers{Svc: services.Registry}
	healthHandlers := &HealthHandlers{DB: services.DB, Output: services.OutputHealth}

	mux.HandleFunc("GET /{$}", homeHandler)

	mux.HandleFunc("POST /v1/job", jobHandlers.Submit)
	mux.HandleFunc("GET /v1/job", jobHandlers.Claim)
	mux.HandleFunc("GET /v1/job/{job_id}", jobHandlers.Get)
	mux.HandleFunc("POST /v1/job/{job_id}/action", jobHandlers.Action)
	mux.HandleFunc("GET /v1/job/{job_id}/position", jobHandlers.Position)

	mux.HandleFunc("POST /v1/result/{job_id}", resultHandlers.PostResult)
	mux.HandleFunc("GET /v1/result/{job_id}", resultHandlers.GetResult)
	mux.HandleFunc("POST /v1/result/{job_id}/output", resultHandlers.PostOutput)
	mux.HandleFunc("GET /v1/result/{job_id}/output", resultHandlers.GetOutput)
	mux.HandleFunc("POST /v1/result/{job_id}/artifact", resultHandlers.PostArtifact)
	mux.HandleFunc("GET /v1/result/{job_id}/artifact", resultHandlers.GetArtifact)

	mux.HandleFunc("GET /v1/agents/data", agentHandlers.ListAgents)
	mux.HandleFunc("POST /v1/agents/data/{agent_name}", agentHandlers.PostAgentData)
	mux.HandleFunc("GET /v1/agents/queues", agentHandlers.GetQueues)
	mux.HandleFunc("POST /v1/agents/queues", agentHandlers.PostQueues)
	mux.HandleFunc("GET /v1/agents/images/{queue}", agentHandlers.GetImages)
	mux.HandleFunc("POST /v1/agents/images", agentHandlers.PostImages)

	mux.HandleFunc("GET /healthz", healthHandlers.Health)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Health)

	var handler http.Handler = mux
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}
	return handler
}

// homeHandler answers the root path with the server identity.
func homeHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ServerIdentity)
}
