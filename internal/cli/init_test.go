package cli

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
)

func TestInvocationID_FromLambdaContext(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-42"})
	if got := InvocationID(ctx); got != "req-42" {
		t.Errorf("InvocationID() = %q, want req-42", got)
	}
}

func TestInvocationID_Fallback(t *testing.T) {
	got := InvocationID(context.Background())
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("InvocationID() = %q, want a uuid: %v", got, err)
	}
}
