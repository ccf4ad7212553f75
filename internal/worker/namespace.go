package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Import runs are only inspected for a few days after they happen.
const namespaceRetention = 72 * time.Hour

// EnsureNamespace registers the namespace the worker runs in, unless it
// already exists.
//
// Returns an error when the namespace cannot be created or described.
func EnsureNamespace(ctx context.Context, cli workflowservice.WorkflowServiceClient, namespace string) error {
	if namespace == "" {
		namespace = "default"
	}

	_, err := cli.RegisterNamespace(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		WorkflowExecutionRetentionPeriod: durationpb.New(namespaceRetention),
	})
	// Handle conflict
	var alreadyErr *serviceerror.NamespaceAlreadyExists
	if errors.As(err, &alreadyErr) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("error registering namespace %q: %s", namespace, err)
	}

	return nil
}
