// Package mcpserver exposes meal analysis as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/meal"
	"github.com/bububa/meal-agents/store"
)

// Analyzer runs one meal analysis
type Analyzer interface {
	Analyze(ctx context.Context, req meal.Request) (*meal.Run, error)
}

// History reads and deletes stored analyses
type History interface {
	Meals(ctx context.Context, limit int, offset int) ([]store.Record, int64, error)
	Meal(ctx context.Context, id string) (*store.Record, error)
	DeleteMeal(ctx context.Context, id string) error
}

const defaultListLimit = 20

// Server wraps the MCP SDK server with the meal tools registered
type Server struct {
	MCPServer *sdkmcp.Server
	analyzer  Analyzer
	history   History
	log       *slog.Logger
}

// NewServer registers analyze_meal, and the list_meals, get_meal and
// delete_meal history tools when history is not nil
func NewServer(version string, analyzer Analyzer, history History) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "meal-agents", Version: version}, nil),
		analyzer:  analyzer,
		history:   history,
		log:       logging.New("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_meal",
		Description: "Identify the foods in a meal photo, research their nutrition and return totals with a confidence score.",
	}, s.handleAnalyzeMeal)
	if s.history == nil {
		return
	}
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_meals",
		Description: "List previously analysed meals, newest first.",
	}, s.handleListMeals)
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_meal",
		Description: "Get a previously analysed meal by ID.",
	}, s.handleGetMeal)
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "delete_meal",
		Description: "Delete a previously analysed meal and its archived photo by ID.",
	}, s.handleDeleteMeal)
}

// Run serves over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// --- Tool input/output types ---

type analyzeMealInput struct {
	ImagePath   string `json:"image_path,omitempty" jsonschema:"path of a local image file"`
	ImageBase64 string `json:"image_base64,omitempty" jsonschema:"base64 encoded image, used when image_path is empty"`
	MimeType    string `json:"mime_type,omitempty" jsonschema:"image media type, sniffed when empty"`
	Hint        string `json:"hint,omitempty" jsonschema:"optional context such as brand or restaurant"`
}

type analyzeMealOutput struct {
	RunID        string          `json:"run_id"`
	Report       meal.MealReport `json:"report"`
	LookupErrors []string        `json:"lookup_errors,omitempty"`
}

type listMealsInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"max meals to return (default 20)"`
	Offset int `json:"offset,omitempty" jsonschema:"meals to skip"`
}

type listMealsOutput struct {
	Meals []mealRecord `json:"meals"`
	Total int64        `json:"total"`
}

// mealRecord is a stored analysis with its time rendered as RFC 3339
type mealRecord struct {
	ID           string          `json:"id"`
	Report       meal.MealReport `json:"report"`
	Hint         string          `json:"hint,omitempty"`
	LookupErrors int             `json:"lookup_errors"`
	CreatedAt    string          `json:"created_at"`
}

func newMealRecord(r *store.Record) mealRecord {
	return mealRecord{
		ID:           r.ID,
		Report:       r.Report,
		Hint:         r.Hint,
		LookupErrors: r.LookupErrors,
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type getMealInput struct {
	ID string `json:"id" jsonschema:"meal ID returned by analyze_meal or list_meals"`
}

type deleteMealOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// --- Tool handlers ---

func (s *Server) handleAnalyzeMeal(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeMealInput) (*sdkmcp.CallToolResult, analyzeMealOutput, error) {
	data, err := readImage(input)
	if err != nil {
		return nil, analyzeMealOutput{}, err
	}
	img, err := meal.NewMealImage(data, input.MimeType)
	if err != nil {
		return nil, analyzeMealOutput{}, err
	}
	run, err := s.analyzer.Analyze(ctx, meal.Request{Image: img, Hint: input.Hint})
	if err != nil {
		return nil, analyzeMealOutput{}, fmt.Errorf("analyze_meal: %w", err)
	}
	out := analyzeMealOutput{RunID: run.ID, Report: *run.Report}
	for _, lookupErr := range run.LookupErrors {
		out.LookupErrors = append(out.LookupErrors, lookupErr.Error())
	}
	s.log.Info("meal analysed", "run", run.ID, "food", run.Report.FoodName)
	return nil, out, nil
}

func (s *Server) handleListMeals(ctx context.Context, _ *sdkmcp.CallToolRequest, input listMealsInput) (*sdkmcp.CallToolResult, listMealsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	list, total, err := s.history.Meals(ctx, limit, max(input.Offset, 0))
	if err != nil {
		return nil, listMealsOutput{}, err
	}
	out := listMealsOutput{Meals: make([]mealRecord, 0, len(list)), Total: total}
	for idx := range list {
		out.Meals = append(out.Meals, newMealRecord(&list[idx]))
	}
	return nil, out, nil
}

func (s *Server) handleGetMeal(ctx context.Context, _ *sdkmcp.CallToolRequest, input getMealInput) (*sdkmcp.CallToolResult, mealRecord, error) {
	if input.ID == "" {
		return nil, mealRecord{}, errors.New("id is required")
	}
	record, err := s.history.Meal(ctx, input.ID)
	if err != nil {
		return nil, mealRecord{}, fmt.Errorf("get_meal %s: %w", input.ID, err)
	}
	return nil, newMealRecord(record), nil
}

func (s *Server) handleDeleteMeal(ctx context.Context, _ *sdkmcp.CallToolRequest, input getMealInput) (*sdkmcp.CallToolResult, deleteMealOutput, error) {
	if input.ID == "" {
		return nil, deleteMealOutput{}, errors.New("id is required")
	}
	if err := s.history.DeleteMeal(ctx, input.ID); err != nil {
		return nil, deleteMealOutput{}, fmt.Errorf("delete_meal %s: %w", input.ID, err)
	}
	s.log.Info("meal deleted", "id", input.ID)
	return nil, deleteMealOutput{ID: input.ID, Deleted: true}, nil
}

func readImage(input analyzeMealInput) ([]byte, error) {
	if input.ImagePath != "" {
		return os.ReadFile(input.ImagePath)
	}
	if input.ImageBase64 == "" {
		return nil, errors.New("image_path or image_base64 is required")
	}
	encoded := input.ImageBase64
	// accept data URLs as produced by browsers
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image_base64: %w", err)
	}
	return data, nil
}
