package trigger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oapi-codegen/runtime"

	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/host"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Service) HandleListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Descriptions())
}

func (s *Service) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	nodeType := mux.Vars(r)["type"]

	h, ok := s.registry.Get(nodeType)
	if !ok {
		http.Error(w, "node type not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.Description())
}

func (s *Service) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, credentials.Descriptors())
}

func (s *Service) HandleTestCredentials(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	slog.Debug("Testing credentials", "name", name)

	if _, ok := credentials.Lookup(name); !ok {
		http.Error(w, "credential type not found", http.StatusNotFound)
		return
	}

	if err := s.testCredentials(r.Context(), name); err != nil {
		slog.Warn("credential test failed", "name", name, "error", err)
		writeJSON(w, http.StatusBadGateway, CredentialTestResponse{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, CredentialTestResponse{OK: true})
}

func (s *Service) HandleListInstances(w http.ResponseWriter, r *http.Request) {
	instances := s.runner.Instances()
	resp := make([]InstanceResponse, 0, len(instances))
	for _, inst := range instances {
		ir := InstanceResponse{
			ID:         inst.ID,
			Workflow:   inst.Workflow,
			NodeType:   inst.NodeType,
			Polling:    s.runner.IsPolling(inst),
			Parameters: inst.Parameters,
		}
		if run, ok := s.runner.LastRun(inst.ID); ok {
			ir.LastRun = &run
		}
		resp = append(resp, ir)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) HandleGetState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	cur, err := s.runner.State(r.Context(), id)
	if err != nil {
		if errors.Is(err, host.ErrUnknownInstance) {
			http.Error(w, "instance not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to load state", "instance", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NewStateResponse(cur))
}

func (s *Service) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slog.Debug("Executing instance", "instance", id)

	res, err := s.runner.Invoke(r.Context(), id)
	if err != nil {
		var opErr *engine.OperationError
		switch {
		case errors.Is(err, host.ErrUnknownInstance):
			http.Error(w, "instance not found", http.StatusNotFound)
		case errors.As(err, &opErr):
			http.Error(w, opErr.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("instance execution failed", "instance", id, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	if res.Items == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, ExecuteResponse{
		RunID:  res.Run.ID.String(),
		Status: res.Run.Status,
		Items:  res.Items,
	})
}

func (s *Service) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !r.URL.Query().Has("since") {
		http.Error(w, "invalid since parameter", http.StatusBadRequest)
		return
	}
	var since time.Time
	if err := runtime.BindQueryParameter("form", true, true, "since", r.URL.Query(), &since); err != nil {
		http.Error(w, "invalid since parameter", http.StatusBadRequest)
		return
	}

	items, err := s.runner.Preview(r.Context(), id, since)
	if err != nil {
		var opErr *engine.OperationError
		switch {
		case errors.Is(err, host.ErrUnknownInstance):
			http.Error(w, "instance not found", http.StatusNotFound)
		case errors.Is(err, host.ErrPreviewUnsupported):
			http.Error(w, "node type does not support preview", http.StatusBadRequest)
		case errors.As(err, &opErr):
			http.Error(w, opErr.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("preview failed", "instance", id, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{Since: since, Items: items})
}

func (s *Service) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc := OpenAPI()
	body, err := doc.MarshalJSON()
	if err != nil {
		slog.Error("failed to render openapi document", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
