// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-nutrisnap/internal/config"
	"mcp-nutrisnap/internal/flows"
	"mcp-nutrisnap/internal/storage"
)

const (
	serverName    = "nutrisnap"
	serverVersion = "1.0.0"
	// Data URI photos arrive inline, so requests can be large.
	maxRequestBytes = 20 << 20
	shutdownTimeout = 10 * time.Second
)

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type NutriSnapServer struct {
	httpServer *http.Server
	flows      *flows.Flows
	storage    *storage.SQLiteStorage
	tools      map[string]toolHandler
	info       protocol.Implementation
}

func NewNutriSnapServer(cfg *config.Config, f *flows.Flows) (*NutriSnapServer, error) {
	if f == nil {
		return nil, errors.New("flows are required")
	}

	// The journal only lives as long as this server.
	stor, err := storage.NewSQLiteStorage(cfg.Journal.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	nutriServer := &NutriSnapServer{
		flows:   f,
		storage: stor,
		info: protocol.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
	}
	nutriServer.registerTools()

	mux := http.NewServeMux()
	mux.HandleFunc("/", nutriServer.handleHTTP)

	nutriServer.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nutriServer, nil
}

func (s *NutriSnapServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.info)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		var perr *paramsError
		if errors.As(err, &perr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Tool %s failed: %v", request.Name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *NutriSnapServer) Start(ctx context.Context) error {
	log.Printf("Starting nutrisnap server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and discards the journal.
func (s *NutriSnapServer) Stop() error {
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		err = errors.Join(err, s.storage.Close())
	}
	return err
}

func (s *NutriSnapServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}

type toolError struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Value      any    `json:"value,omitempty"`
}

type errorBody struct {
	Error      toolError `json:"error"`
	AnalysisID string    `json:"analysisId,omitempty"`
}

// createErrorResponse reports a flow failure as a tool result so callers can
// tell the error kinds apart.
func (s *NutriSnapServer) createErrorResponse(analysisID string, err error) (*protocol.CallToolResult, error) {
	body := errorBody{
		Error:      toolError{Kind: flows.Kind(err), Message: err.Error()},
		AnalysisID: analysisID,
	}

	var invalid *flows.InvalidInputError
	if errors.As(err, &invalid) {
		body.Error.Field = invalid.Field
		body.Error.Constraint = invalid.Reason
	}
	var verr *flows.SchemaValidationError
	if errors.As(err, &verr) {
		body.Error.Field = verr.Field
		body.Error.Constraint = verr.Constraint
		body.Error.Value = verr.Value
		if _, err := json.Marshal(verr.Value); err != nil {
			body.Error.Value = fmt.Sprint(verr.Value)
		}
	}

	result, mErr := s.createJSONResponse(body)
	if mErr != nil {
		return nil, mErr
	}
	result.IsError = true
	return result, nil
}
