package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"go.uber.org/zap"
)

type startFlowRequest struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

func (s *Server) HandleStartFlow(w http.ResponseWriter, r *http.Request) {
	var req startFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	flowId, err := s.executorService.StartFlow(req.Name, req.Input)
	if err != nil {
		logger.Error("error starting flow", zap.String("name", req.Name), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error starting flow")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"flowId": flowId})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flowId := model.FlowId(vars["id"])
	state, ok := s.executorService.GetFlowState(flowId)
	if !ok {
		respondWithError(w, http.StatusNotFound, "flow not found")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"flowId": flowId, "state": state})
}

func (s *Server) HandleCommitTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hash := vars["hash"]
	if err := s.container.GetTransactionTracker().NotifyCommitted(hash); err != nil {
		logger.Error("error publishing transaction commit", zap.String("txHash", hash), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error publishing commit")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"txHash": hash})
}
