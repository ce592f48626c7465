// internal/server/tools.go
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/google/uuid"

	"mcp-nutrisnap/internal/flows"
	"mcp-nutrisnap/internal/models"
	"mcp-nutrisnap/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200

	// Longer photo references are journaled as a prefix plus digest.
	maxJournalPhotoRef = 256
	journalPhotoPrefix = 64
)

type IdentifyIngredientsParams struct {
	PhotoURL string `json:"photoUrl" description:"Food photo as a data URI or an http(s) URL"`
}

type EstimateNutritionalValueParams struct {
	Ingredients []models.IngredientEntry `json:"ingredients" description:"Ingredients with free-text quantities"`
}

type EstimateFromAnalysisParams struct {
	AnalysisID        string                   `json:"analysisId" description:"ID returned by identify_ingredients"`
	ManualIngredients []models.IngredientEntry `json:"manualIngredients,omitempty" description:"Replaces the identified ingredients when non-empty"`
}

type ListAnalysesParams struct {
	Flow  string `json:"flow,omitempty" description:"identifyIngredients or estimateNutritionalValue"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of analyses to return"`
}

type IdentifyIngredientsResult struct {
	AnalysisID string `json:"analysisId,omitempty"`
	models.IdentifyIngredientsOutput
}

type EstimateNutritionalValueResult struct {
	AnalysisID string `json:"analysisId,omitempty"`
	models.EstimateNutritionalValueOutput
	Discrepancies []flows.Discrepancy `json:"discrepancies"`
}

// paramsError marks a request whose arguments could not be used at all. It is
// answered with 400 instead of a tool result.
type paramsError struct {
	err error
}

func (e *paramsError) Error() string {
	return "invalid parameters: " + e.err.Error()
}

func (e *paramsError) Unwrap() error {
	return e.err
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return &paramsError{fmt.Errorf("failed to marshal arguments: %w", err)}
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return &paramsError{fmt.Errorf("failed to unmarshal parameters: %w", err)}
	}

	return nil
}

// handleIdentifyIngredients runs the identification flow on one photo.
func (s *NutriSnapServer) handleIdentifyIngredients(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params IdentifyIngredientsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	in := models.IdentifyIngredientsInput{PhotoURL: models.PhotoReference(params.PhotoURL)}
	start := time.Now()
	out, err := s.flows.IdentifyIngredients(ctx, in)
	journaled := models.IdentifyIngredientsInput{PhotoURL: journalPhotoRef(in.PhotoURL)}
	id := s.journal(ctx, flows.FlowIdentifyIngredients, journaled, out, err, start)
	if err != nil {
		log.Printf("identify_ingredients failed (%s): %v", flows.Kind(err), err)
		return s.createErrorResponse(id, err)
	}

	return s.createJSONResponse(IdentifyIngredientsResult{AnalysisID: id, IdentifyIngredientsOutput: *out})
}

// handleEstimateNutritionalValue estimates nutrition for a caller-supplied list.
func (s *NutriSnapServer) handleEstimateNutritionalValue(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EstimateNutritionalValueParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	return s.estimate(ctx, params.Ingredients)
}

// handleEstimateFromAnalysis estimates nutrition for a journaled
// identification. Manual ingredients win over identified ones when given.
func (s *NutriSnapServer) handleEstimateFromAnalysis(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EstimateFromAnalysisParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.AnalysisID) == "" {
		return nil, &paramsError{errors.New("analysisId is required")}
	}

	analysis, err := s.storage.GetAnalysis(ctx, params.AnalysisID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &paramsError{err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	if analysis.Flow != flows.FlowIdentifyIngredients || !analysis.Succeeded() {
		return nil, &paramsError{fmt.Errorf("analysis %s is not a successful ingredient identification", analysis.ID)}
	}

	var identified models.IdentifyIngredientsOutput
	if err := json.Unmarshal(analysis.Output, &identified); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", analysis.ID, err)
	}

	return s.estimate(ctx, flows.SelectIngredients(identified.Ingredients, params.ManualIngredients))
}

func (s *NutriSnapServer) estimate(ctx context.Context, ingredients []models.IngredientEntry) (*protocol.CallToolResult, error) {
	in := models.EstimateNutritionalValueInput{Ingredients: ingredients}
	start := time.Now()
	out, err := s.flows.EstimateNutritionalValue(ctx, in)
	id := s.journal(ctx, flows.FlowEstimateNutritionalValue, in, out, err, start)
	if err != nil {
		log.Printf("estimate_nutritional_value failed (%s): %v", flows.Kind(err), err)
		return s.createErrorResponse(id, err)
	}

	discrepancies := flows.CompareEstimates(ingredients, out.NutritionalValues)
	if len(discrepancies) > 0 {
		log.Printf("Warning: %d estimate(s) do not line up with the requested ingredients (analysis %s)", len(discrepancies), id)
	} else {
		discrepancies = []flows.Discrepancy{}
	}

	return s.createJSONResponse(EstimateNutritionalValueResult{
		AnalysisID:                     id,
		EstimateNutritionalValueOutput: *out,
		Discrepancies:                  discrepancies,
	})
}

// handleListAnalyses returns journaled analyses, newest first.
func (s *NutriSnapServer) handleListAnalyses(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListAnalysesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	switch params.Flow {
	case "", flows.FlowIdentifyIngredients, flows.FlowEstimateNutritionalValue:
	default:
		return nil, &paramsError{fmt.Errorf("unknown flow %q", params.Flow)}
	}

	if params.Limit <= 0 {
		params.Limit = defaultListLimit
	}
	if params.Limit > maxListLimit {
		params.Limit = maxListLimit
	}

	analyses, err := s.storage.ListAnalyses(ctx, params.Flow, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve analyses: %w", err)
	}

	return s.createJSONResponse(analyses)
}

// journal records one flow call and returns its ID, or "" when it could not
// be saved. A journal failure never fails the call itself.
func (s *NutriSnapServer) journal(ctx context.Context, flow string, in, out any, callErr error, start time.Time) string {
	a := &models.Analysis{
		ID:         uuid.NewString(),
		Flow:       flow,
		DurationMS: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	input, err := json.Marshal(in)
	if err != nil {
		log.Printf("Warning: failed to encode %s input for journal: %v", flow, err)
		return ""
	}
	a.Input = input

	if callErr != nil {
		a.ErrorKind = flows.Kind(callErr)
		a.ErrorMessage = callErr.Error()
	} else {
		output, err := json.Marshal(out)
		if err != nil {
			log.Printf("Warning: failed to encode %s output for journal: %v", flow, err)
			return ""
		}
		a.Output = output
	}

	// Journal cancelled calls too.
	if err := s.storage.SaveAnalysis(context.WithoutCancel(ctx), a); err != nil {
		log.Printf("Warning: failed to journal %s: %v", flow, err)
		return ""
	}
	return a.ID
}

// journalPhotoRef shortens an inline photo so a journal row stays small. The
// digest still tells two photos apart.
func journalPhotoRef(ref models.PhotoReference) models.PhotoReference {
	if len(ref) <= maxJournalPhotoRef {
		return ref
	}
	sum := sha256.Sum256([]byte(ref))
	return models.PhotoReference(fmt.Sprintf("%s...sha256:%s (%d bytes)",
		strings.ToValidUTF8(string(ref[:journalPhotoPrefix]), ""), hex.EncodeToString(sum[:]), len(ref)))
}

func (s *NutriSnapServer) registerTools() {
	s.tools = map[string]toolHandler{
		"identify_ingredients":       s.handleIdentifyIngredients,
		"estimate_nutritional_value": s.handleEstimateNutritionalValue,
		"estimate_from_analysis":     s.handleEstimateFromAnalysis,
		"list_analyses":              s.handleListAnalyses,
	}

	for name := range s.tools {
		log.Printf("Registered tool: %s", name)
	}
}
