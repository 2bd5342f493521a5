package httpx

import (
	"errors"
	"net/http"

	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/service"
)

// AgentHandlers handles the agent registry and queue advertisement endpoints.
type AgentHandlers struct {
	Svc *service.Registry
}

// PostAgentData handles POST /v1/agents/data/{agent_name}.
func (h *AgentHandlers) PostAgentData(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("agent_name")

	var update model.AgentUpdate
	if !DecodeJSON(w, r, &update) {
		return
	}

	if err := h.Svc.UpdateAgent(r.Context(), name, update); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "agent_update_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"name": name})
}

// ListAgents handles GET /v1/agents/data.
func (h *AgentHandlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Svc.ListAgents(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "agent_list_failed", Err: err})
		return
	}
	if agents == nil {
		agents = []model.Agent{}
	}
	WriteJSON(w, http.StatusOK, agents)
}

// PostQueues handles POST /v1/agents/queues. The body is a map of queue
// name to description.
func (h *AgentHandlers) PostQueues(w http.ResponseWriter, r *http.Request) {
	var queues map[string]string
	if !DecodeJSON(w, r, &queues) {
		return
	}

	if err := h.Svc.AdvertiseQueues(r.Context(), queues); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "queue_advertise_failed", Err: err})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetQueues handles GET /v1/agents/queues.
func (h *AgentHandlers) GetQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := h.Svc.ListQueues(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "queue_list_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, queues)
}

// PostImages handles POST /v1/agents/images. The body maps queue names to
// their image name -> provision-data maps.
func (h *AgentHandlers) PostImages(w http.ResponseWriter, r *http.Request) {
	var images map[string]map[string]string
	if !DecodeJSON(w, r, &images) {
		return
	}

	for queue, imageMap := range images {
		if err := h.Svc.SetQueueImages(r.Context(), queue, imageMap); err != nil {
			if queue == "" {
				WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_queue", Err: errors.New("queue name is required")})
				return
			}
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "image_advertise_failed", Err: err})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// GetImages handles GET /v1/agents/images/{queue}.
func (h *AgentHandlers) GetImages(w http.ResponseWriter, r *http.Request) {
	queue := r.PathValue("queue")

	images, err := h.Svc.QueueImages(r.Context(), queue)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "image_list_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, images)
}
