package observability

import (
	"context"
	"testing"

	"github.com/weaverai/weaver/internal/log"
)

func TestSetup_EmptyEndpointDisabled(t *testing.T) {
	cleanup := Setup(context.Background(), "", log.NewNop())
	if cleanup == nil {
		t.Fatal("cleanup must not be nil")
	}
	// No-op cleanup must be safe to call.
	cleanup()
}
