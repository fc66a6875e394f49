package dispatch

import (
	"context"
	"errors"
	"testing"

	"parcelvoice/internal/models"
)

func okHandler() Handler {
	return HandlerFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Success: true}, nil
	})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	registry := NewRegistry()

	if _, ok := registry.Resolve(models.CommandTypeNavigation); ok {
		t.Fatal("Expected an empty registry to resolve nothing")
	}

	registry.Register(models.CommandTypeNavigation, okHandler())
	handler, ok := registry.Resolve(models.CommandTypeNavigation)
	if !ok {
		t.Fatal("Expected the handler to resolve")
	}

	resp, err := handler.Handle(context.Background(), Request{CommandType: models.CommandTypeNavigation})
	if err != nil || !resp.Success {
		t.Errorf("Unexpected handler result: %+v, %v", resp, err)
	}
}

func TestNoop_FailsEveryRequest(t *testing.T) {
	_, err := Noop().Handle(context.Background(), Request{CommandType: models.CommandTypeWorkflow})
	if err == nil {
		t.Fatal("Expected the stub handler to fail")
	}

	var herr *Error
	if !errors.As(err, &herr) {
		t.Fatalf("Expected a tagged error, got %T", err)
	}
	if herr.Kind != KindOther {
		t.Errorf("Expected KindOther, got %s", herr.Kind)
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindPermission}
	if err.Error() == "" {
		t.Error("Expected a non-empty default message")
	}

	err = &Error{Kind: KindPermission, Message: "nope"}
	if err.Error() != "nope" {
		t.Errorf("Expected the explicit message, got %q", err.Error())
	}
}

func TestRateLimited_PerUser(t *testing.T) {
	// 1 token/second with burst 2: two calls pass, the third is limited
	handler := RateLimited(okHandler(), 1, 2)
	ctx := context.Background()

	reqUser7 := Request{Context: models.CommandContext{UserID: 7}}
	for i := 0; i < 2; i++ {
		if _, err := handler.Handle(ctx, reqUser7); err != nil {
			t.Fatalf("Call %d unexpectedly limited: %v", i+1, err)
		}
	}

	_, err := handler.Handle(ctx, reqUser7)
	var herr *Error
	if !errors.As(err, &herr) || herr.Kind != KindRateLimit {
		t.Fatalf("Expected a rate limit error, got %v", err)
	}

	// Another user has their own bucket
	reqUser8 := Request{Context: models.CommandContext{UserID: 8}}
	if _, err := handler.Handle(ctx, reqUser8); err != nil {
		t.Errorf("Expected a separate bucket per user, got %v", err)
	}
}
