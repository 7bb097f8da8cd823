package directory

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	smithyhttp "github.com/aws/smithy-go/transport/http"
)

func TestClassifyDispatchFailureIsAuth(t *testing.T) {
	// No HTTP response in the chain: the request never reached the
	// service (expired SSO session, DNS failure, ...).
	err := classify("list tunnels", "", "G111070", errors.New("dial tcp: lookup api: no such host"))
	if !IsAuth(err) {
		t.Fatalf("dispatch failure not classified as auth: %v", err)
	}
}

func TestClassifyServiceRejectionIsOperation(t *testing.T) {
	sdkErr := &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusBadRequest}},
		Err:      errors.New("ValidationException: invalid thing name"),
	}
	err := classify("open tunnel", "", "G111070", fmt.Errorf("operation error: %w", sdkErr))
	if IsAuth(err) {
		t.Fatalf("service rejection misclassified as auth: %v", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindOperation {
		t.Fatalf("expected KindOperation, got %v", err)
	}
}

func TestErrorStringCarriesOpAndTarget(t *testing.T) {
	err := &Error{Kind: KindOperation, Op: "close tunnel", TunnelID: "T1", Err: errors.New("boom")}
	want := "close tunnel T1: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	err = &Error{Kind: KindAuth, Op: "list tunnels", DeviceID: "G111070", Err: errors.New("boom")}
	want = "list tunnels G111070: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsAuthUnwrapsChains(t *testing.T) {
	inner := &Error{Kind: KindAuth, Op: "list tunnels", Err: errors.New("boom")}
	wrapped := fmt.Errorf("reconcile G111070: %w", inner)
	if !IsAuth(wrapped) {
		t.Fatal("IsAuth should see through wrapping")
	}
	if IsAuth(errors.New("unrelated")) {
		t.Fatal("IsAuth matched an unrelated error")
	}
}
