package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/debate"
	"github.com/colloquyhq/colloquy/store"
	"github.com/colloquyhq/colloquy/workflow"
)

type chatRequest struct {
	AgentID string `json:"agentId"`
	Message string `json:"message"`
}

type workflowRequest struct {
	AgentIDs     []string `json:"agentIds"`
	UserPrompt   string   `json:"userPrompt"`
	Mode         string   `json:"mode,omitempty"`
	SmartRouting bool     `json:"smartRouting,omitempty"`
}

type debateRequest struct {
	AgentIDs []string `json:"agentIds"`
	Topic    string   `json:"topic"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, map[string]any{"ok": true, "message": "colloquy backend running"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	agents := s.agents
	if agents == nil {
		agents = []core.AgentDescriptor{}
	}
	jsonResponse(w, map[string]any{"ok": true, "agents": agents})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}
	agent, ok := s.agentsBy[req.AgentID]
	if !ok {
		jsonError(w, fmt.Sprintf("unknown agent %q", req.AgentID), http.StatusBadRequest)
		return
	}

	reply, err := s.invoker.Invoke(r.Context(), agent, []core.Message{core.UserMessage(req.Message)})
	if err != nil && reply == "" {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, map[string]any{"ok": true, "reply": reply})
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	req, wfReq, ok := s.decodeWorkflow(w, r)
	if !ok {
		return
	}

	res, err := s.orch.Run(r.Context(), wfReq)
	if res != nil {
		s.persistWorkflow(r.Context(), req, res, err)
	}
	if err != nil {
		if res == nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Partial result: report it alongside the failure.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error(), "data": res})
		return
	}
	jsonResponse(w, map[string]any{"ok": true, "data": res})
}

func (s *Server) handleWorkflowStream(w http.ResponseWriter, r *http.Request) {
	req, wfReq, ok := s.decodeWorkflow(w, r)
	if !ok {
		return
	}

	record := &store.RunRecord{
		ID:     core.NewID(),
		Kind:   store.KindWorkflow,
		Prompt: req.UserPrompt,
		Mode:   req.Mode,
		Status: store.StatusRunning,
		Agents: mustJSON(req.AgentIDs),
	}

	s.streamEvents(w, r, record, s.orch.Stream(r.Context(), wfReq))
}

func (s *Server) handleDebate(w http.ResponseWriter, r *http.Request) {
	req, agents, ok := s.decodeDebate(w, r)
	if !ok {
		return
	}

	session, err := s.debates.Run(r.Context(), req.Topic, agents)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.persistDebate(r.Context(), req, session)
	jsonResponse(w, map[string]any{"ok": true, "data": session})
}

func (s *Server) handleDebateStream(w http.ResponseWriter, r *http.Request) {
	req, agents, ok := s.decodeDebate(w, r)
	if !ok {
		return
	}

	record := &store.RunRecord{
		ID:     core.NewID(),
		Kind:   store.KindDebate,
		Prompt: req.Topic,
		Status: store.StatusRunning,
		Agents: mustJSON(req.AgentIDs),
	}

	s.streamEvents(w, r, record, s.debates.Stream(r.Context(), req.Topic, agents))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		jsonResponse(w, map[string]any{"ok": true, "runs": []store.RunRecord{}})
		return
	}
	runs, err := s.runs.ListRuns(r.Context(), 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	jsonResponse(w, map[string]any{"ok": true, "runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		jsonError(w, "run history disabled", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, fmt.Sprintf("run %q not found", id), http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]any{"ok": true, "run": run})
}

// decodeWorkflow parses and validates a workflow request, resolving agent
// ids against the configured roster.
func (s *Server) decodeWorkflow(w http.ResponseWriter, r *http.Request) (workflowRequest, workflow.Request, bool) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return req, workflow.Request{}, false
	}
	if req.UserPrompt == "" {
		jsonError(w, "userPrompt is required", http.StatusBadRequest)
		return req, workflow.Request{}, false
	}
	agents, err := s.resolveAgents(req.AgentIDs)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return req, workflow.Request{}, false
	}
	mode := core.Mode(req.Mode)
	if req.Mode != "" && !mode.Valid() {
		jsonError(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return req, workflow.Request{}, false
	}
	return req, workflow.Request{
		Agents:       agents,
		Prompt:       req.UserPrompt,
		Mode:         mode,
		SmartRouting: req.SmartRouting,
	}, true
}

func (s *Server) decodeDebate(w http.ResponseWriter, r *http.Request) (debateRequest, []core.AgentDescriptor, bool) {
	var req debateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return req, nil, false
	}
	if req.Topic == "" {
		jsonError(w, "topic is required", http.StatusBadRequest)
		return req, nil, false
	}
	agents, err := s.resolveAgents(req.AgentIDs)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return req, nil, false
	}
	if len(agents) < 2 {
		jsonError(w, "a debate requires at least two agents", http.StatusBadRequest)
		return req, nil, false
	}
	return req, agents, true
}

func (s *Server) resolveAgents(ids []string) ([]core.AgentDescriptor, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("agentIds is required")
	}
	agents := make([]core.AgentDescriptor, 0, len(ids))
	for _, id := range ids {
		a, ok := s.agentsBy[id]
		if !ok {
			return nil, fmt.Errorf("unknown agent %q", id)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// streamEvents writes each event from ch as one NDJSON line, flushing
// after every write, and mirrors the stream to the WebSocket hub. The
// run record adopts the engine's run id from the first event, is
// persisted as running, and is finalized from the terminal event.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, record *store.RunRecord, ch <-chan core.Event) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	first := true
	for ev := range ch {
		if first {
			first = false
			// The stored record must carry the run id the client sees in the
			// event stream; the pre-minted id only survives runs that fail
			// before the engine assigns one.
			if id := ev.EventMeta().RunID; id != "" {
				record.ID = id
			}
			s.persistRecord(r.Context(), record)
		}
		envelope := Envelope{Type: ev.Type(), Payload: ev}
		if err := enc.Encode(envelope); err != nil {
			s.logger.Warn("server.stream_write_failed", "error", err.Error())
			// Client gone; drain remaining events so the run finishes
			// and gets persisted.
		}
		if flusher != nil {
			flusher.Flush()
		}
		s.hub.Broadcast(envelope)

		if ev.Terminal() {
			s.finalizeRecord(record, ev)
		}
	}
	s.persistRecord(context.Background(), record)
}

func (s *Server) finalizeRecord(record *store.RunRecord, ev core.Event) {
	switch t := ev.(type) {
	case core.WorkflowCompleteEvent:
		record.Status = store.StatusCompleted
		record.Result = mustJSON(t)
	case core.ConsensusReachedEvent:
		record.Status = store.StatusCompleted
		record.Result = mustJSON(t)
	case core.RunErrorEvent:
		record.Status = store.StatusFailed
		record.Error = t.Err
	}
}

func (s *Server) persistWorkflow(ctx context.Context, req workflowRequest, res *workflow.Result, runErr error) {
	record := &store.RunRecord{
		ID:     res.RunID,
		Kind:   store.KindWorkflow,
		Prompt: req.UserPrompt,
		Mode:   string(res.Mode),
		Status: store.StatusCompleted,
		Agents: mustJSON(req.AgentIDs),
		Result: mustJSON(res),
	}
	if runErr != nil {
		record.Status = store.StatusFailed
		record.Error = runErr.Error()
	}
	s.persistRecord(ctx, record)
}

func (s *Server) persistDebate(ctx context.Context, req debateRequest, session *debate.Session) {
	s.persistRecord(ctx, &store.RunRecord{
		ID:     session.RunID,
		Kind:   store.KindDebate,
		Prompt: req.Topic,
		Status: store.StatusCompleted,
		Agents: mustJSON(req.AgentIDs),
		Result: mustJSON(session),
	})
}

func (s *Server) persistRecord(ctx context.Context, record *store.RunRecord) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(ctx, record); err != nil {
		s.logger.Warn("server.persist_failed", "run", record.ID, "error", err.Error())
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}
