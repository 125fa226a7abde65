package imagegen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"throttling", &types.ThrottlingException{}, KindRateLimited},
		{"quota exceeded", &types.ServiceQuotaExceededException{}, KindRateLimited},
		{"validation", &types.ValidationException{}, KindInvalidPrompt},
		{"model timeout", &types.ModelTimeoutException{}, KindServiceUnavailable},
		{"internal error", &types.InternalServerException{}, KindServiceUnavailable},
		{"plain error", errors.New("connection refused"), KindServiceUnavailable},
		{"wrapped throttling", fmt.Errorf("invoke: %w", &types.ThrottlingException{}), KindRateLimited},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classified := classify(tc.err)

			var genErr *Error
			if !errors.As(classified, &genErr) {
				t.Fatalf("Expected *Error, got %T", classified)
			}
			if genErr.Kind != tc.want {
				t.Errorf("Expected kind %q, got %q", tc.want, genErr.Kind)
			}
			if !errors.Is(classified, tc.err) && genErr.Err != tc.err {
				t.Error("Expected the original error to stay reachable")
			}
		})
	}
}

func TestErrorMessageIncludesKind(t *testing.T) {
	err := &Error{Kind: KindRateLimited, Err: errors.New("slow down")}
	msg := err.Error()
	if msg == "" || err.Unwrap() == nil {
		t.Fatalf("Unexpected error shape: %q", msg)
	}
}
