package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"parcelvoice/internal/database"
	"parcelvoice/internal/dispatch"
	"parcelvoice/internal/models"
)

func newTestProcessor(t *testing.T, db *database.DB, registry *dispatch.Registry, analytics *AnalyticsService) *CommandProcessor {
	t.Helper()
	help := NewHelpService(db)
	return NewCommandProcessor(
		NewShortcutService(db),
		NewIntentClassifier(),
		NewParamExtractor(),
		NewConfidenceScorer(),
		NewErrorRecoveryService(help),
		help,
		registry,
		analytics,
		nil, // metrics use the global registry; tests run without them
		0.3,
	)
}

func echoRegistry() *dispatch.Registry {
	registry := dispatch.NewRegistry()
	echo := dispatch.HandlerFunc(func(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
		return &dispatch.Response{Success: true, Result: req.Parameters, Message: "ok"}, nil
	})
	for _, ct := range []models.CommandType{
		models.CommandTypeNavigation,
		models.CommandTypeAssessment,
		models.CommandTypeDataQuery,
		models.CommandTypeSystem,
		models.CommandTypeWorkflow,
		models.CommandTypeCoding,
	} {
		registry.Register(ct, echo)
	}
	return registry
}

func TestProcess_Success(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_success.db")
	defer cleanup()

	processor := newTestProcessor(t, db, echoRegistry(), nil)

	result := processor.Process(context.Background(), "go to dashboard", models.CommandContext{UserID: 7, SessionID: "s1"})
	if !result.Success || result.Status != models.ResultStatusSuccess {
		t.Fatalf("Expected success, got %+v", result)
	}
	if result.CommandType != models.CommandTypeNavigation {
		t.Errorf("Expected navigation, got %s", result.CommandType)
	}
	if result.Intent != IntentNavigationGoto {
		t.Errorf("Expected %s, got %s", IntentNavigationGoto, result.Intent)
	}

	params, ok := result.Result.(map[string]string)
	if !ok {
		t.Fatalf("Expected echoed parameters, got %T", result.Result)
	}
	if params[ParamDestination] != "dashboard" {
		t.Errorf("Expected destination dashboard, got %q", params[ParamDestination])
	}
	if result.ConfidenceScore < 0.3 {
		t.Errorf("Expected confidence above threshold, got %f", result.ConfidenceScore)
	}
}

func TestProcess_NotRecognized(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_unrecognized.db")
	defer cleanup()

	processor := newTestProcessor(t, db, echoRegistry(), nil)

	result := processor.Process(context.Background(), "xyzzy frobnicate", models.CommandContext{UserID: 7})
	if result.Success {
		t.Fatal("Expected failure")
	}
	if result.Status != models.ResultStatusNotRecognized {
		t.Errorf("Expected not_recognized, got %s", result.Status)
	}
	if len(result.Suggestions) == 0 {
		t.Error("Expected recovery suggestions")
	}
	if result.Error == "" {
		t.Error("Expected an error message")
	}
}

func TestProcess_MissingParameter(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_missing.db")
	defer cleanup()

	processor := newTestProcessor(t, db, echoRegistry(), nil)

	result := processor.Process(context.Background(), "assess property", models.CommandContext{UserID: 7})
	if result.Status != models.ResultStatusMissingParameter {
		t.Fatalf("Expected missing_parameter, got %s (%+v)", result.Status, result)
	}
	if result.CommandType != models.CommandTypeAssessment {
		t.Errorf("Expected the command type to survive recovery, got %s", result.CommandType)
	}
	if len(result.Suggestions) == 0 {
		t.Error("Expected field-specific guidance")
	}
}

func TestProcess_ShortcutExpansion(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_shortcut.db")
	defer cleanup()

	shortcuts := NewShortcutService(db)
	if _, err := shortcuts.Create(context.Background(), &models.CreateShortcutRequest{
		OwnerUserID:     7,
		ShortcutPhrase:  "my props",
		ExpandedCommand: "show all properties",
		CommandType:     models.CommandTypeDataQuery,
	}); err != nil {
		t.Fatalf("Failed to create shortcut: %v", err)
	}

	processor := newTestProcessor(t, db, echoRegistry(), nil)

	result := processor.Process(context.Background(), "my props", models.CommandContext{UserID: 7})
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}
	if result.CommandType != models.CommandTypeDataQuery {
		t.Errorf("Expected the expanded command to classify as data_query, got %s", result.CommandType)
	}
	if result.Intent != IntentQueryProperties {
		t.Errorf("Expected %s, got %s", IntentQueryProperties, result.Intent)
	}
}

func TestProcess_Help(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_help.db")
	defer cleanup()

	help := NewHelpService(db)
	if _, err := help.Create(context.Background(), &models.CreateHelpContentRequest{
		CommandType:    models.CommandTypeNavigation,
		Title:          "Navigate to a screen",
		ExamplePhrases: []string{"go to dashboard"},
		Priority:       90,
	}); err != nil {
		t.Fatalf("Failed to create help entry: %v", err)
	}

	processor := newTestProcessor(t, db, echoRegistry(), nil)

	result := processor.Process(context.Background(), "help", models.CommandContext{UserID: 7})
	if !result.Success {
		t.Fatalf("Expected help to succeed, got %+v", result)
	}
	if result.Intent != IntentSystemHelp {
		t.Errorf("Expected %s, got %s", IntentSystemHelp, result.Intent)
	}
	if len(result.HelpContent) == 0 {
		t.Error("Expected help content in the result")
	}
	if len(result.AlternativeCommands) == 0 {
		t.Error("Expected example phrases as alternatives")
	}
}

func TestProcess_HandlerErrorKinds(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_errors.db")
	defer cleanup()

	tests := []struct {
		name   string
		err    error
		status models.ResultStatus
	}{
		{
			"permission",
			&dispatch.Error{Kind: dispatch.KindPermission, Permission: "valuation:run"},
			models.ResultStatusPermissionDenied,
		},
		{
			"rate limit",
			&dispatch.Error{Kind: dispatch.KindRateLimit, Message: "too many requests"},
			models.ResultStatusRateLimited,
		},
		{
			"invalid parameter",
			&dispatch.Error{Kind: dispatch.KindInvalidParameter, Param: ParamDestination, Value: "narnia", ValidValues: []string{"dashboard", "map"}},
			models.ResultStatusInvalidParameter,
		},
		{
			"other",
			&dispatch.Error{Kind: dispatch.KindOther, Message: "backend unavailable"},
			models.ResultStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := dispatch.NewRegistry()
			registry.Register(models.CommandTypeNavigation, dispatch.HandlerFunc(
				func(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
					return nil, tt.err
				}))
			processor := newTestProcessor(t, db, registry, nil)

			result := processor.Process(context.Background(), "go to dashboard", models.CommandContext{UserID: 7})
			if result.Success {
				t.Fatal("Expected failure")
			}
			if result.Status != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, result.Status)
			}
			if result.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

// A handler can decline a command without returning an error; the result
// must still report failure, never a silent success.
func TestProcess_HandlerDeclines(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_declined.db")
	defer cleanup()

	registry := dispatch.NewRegistry()
	registry.Register(models.CommandTypeNavigation, dispatch.HandlerFunc(
		func(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
			return &dispatch.Response{Success: false, Message: "backend declined"}, nil
		}))
	processor := newTestProcessor(t, db, registry, nil)

	result := processor.Process(context.Background(), "go to dashboard", models.CommandContext{UserID: 7})
	if result.Success {
		t.Fatal("Expected a declined command to be reported as failed")
	}
	if result.Status != models.ResultStatusError {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if result.Error != "backend declined" {
		t.Errorf("Expected the handler's message to surface, got %q", result.Error)
	}
}

func TestProcess_NoHandlerRegistered(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_nohandler.db")
	defer cleanup()

	processor := newTestProcessor(t, db, dispatch.NewRegistry(), nil)

	result := processor.Process(context.Background(), "go to dashboard", models.CommandContext{UserID: 7})
	if result.Status != models.ResultStatusNotRecognized {
		t.Errorf("Expected not_recognized for an unroutable command, got %s", result.Status)
	}
}

// A panicking handler must produce an error result, never crash the caller.
func TestProcess_PanickingHandler(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_panic.db")
	defer cleanup()

	registry := dispatch.NewRegistry()
	registry.Register(models.CommandTypeNavigation, dispatch.HandlerFunc(
		func(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
			panic("handler exploded")
		}))
	processor := newTestProcessor(t, db, registry, nil)

	result := processor.Process(context.Background(), "go to dashboard", models.CommandContext{UserID: 7})
	if result == nil {
		t.Fatal("Expected a result from a panicking handler")
	}
	if result.Status != models.ResultStatusError {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if result.Success {
		t.Error("Expected failure")
	}
}

func TestProcess_LogsToAnalytics(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_analytics.db")
	defer cleanup()

	analytics := NewAnalyticsService(db, nil)
	processor := newTestProcessor(t, db, echoRegistry(), analytics)
	ctx := context.Background()

	processor.Process(ctx, "go to dashboard", models.CommandContext{UserID: 7, SessionID: "s1"})
	processor.Process(ctx, "xyzzy frobnicate", models.CommandContext{UserID: 7, SessionID: "s1"})
	analytics.Wait()

	date := time.Now().UTC().Format("2006-01-02")
	analytic, err := analytics.GetDaily(ctx, date, 7)
	if err != nil {
		t.Fatalf("GetDaily failed: %v", err)
	}
	if analytic == nil {
		t.Fatal("Expected a rollup after processing")
	}
	if analytic.TotalCommands != 2 {
		t.Errorf("Expected 2 logged commands, got %d", analytic.TotalCommands)
	}
	if analytic.SuccessfulCmds != 1 || analytic.AmbiguousCmds != 1 {
		t.Errorf("Unexpected status split: %+v", analytic)
	}
}

func TestProcess_PersistsCodingContext(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_processor_context.db")
	defer cleanup()

	analytics := NewAnalyticsService(db, nil)
	processor := newTestProcessor(t, db, echoRegistry(), analytics)
	ctx := context.Background()

	processor.Process(ctx, "fix this error", models.CommandContext{
		UserID:          7,
		SessionID:       "s1",
		ContextID:       "ctx-42",
		CurrentFile:     "internal/api/server.go",
		ProjectLanguage: "go",
		ErrorMessage:    "nil pointer dereference",
	})
	analytics.Wait()

	var raw string
	err := db.QueryRowContext(ctx,
		"SELECT context_data FROM command_logs WHERE user_id = ?", 7).Scan(&raw)
	if err != nil {
		t.Fatalf("Failed to read logged context: %v", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("Failed to decode context_data: %v", err)
	}
	want := map[string]string{
		"context_id":       "ctx-42",
		"current_file":     "internal/api/server.go",
		"project_language": "go",
		"error_message":    "nil pointer dereference",
	}
	for key, expected := range want {
		if data[key] != expected {
			t.Errorf("Expected %s=%q, got %v", key, expected, data[key])
		}
	}
	if _, ok := data["selected_code"]; ok {
		t.Error("Expected empty fields to be omitted from context_data")
	}
}

func TestCommandContextData_Empty(t *testing.T) {
	if data := commandContextData(models.CommandContext{UserID: 7, SessionID: "s1"}); data != nil {
		t.Errorf("Expected nil context data for a bare context, got %v", data)
	}
}
