package clipboard

import (
	"errors"
	"testing"
)

func TestServiceCopy(t *testing.T) {
	writeFailure := errors.New("xclip exited")
	testCases := []struct {
		name          string
		supported     bool
		writeErr      error
		expectedErr   error
		expectWritten bool
	}{
		{name: "writes text", supported: true, expectWritten: true},
		{name: "unsupported host", supported: false, expectedErr: ErrUnavailable},
		{name: "write failure is wrapped", supported: true, writeErr: writeFailure, expectedErr: writeFailure, expectWritten: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			var written string
			service := &Service{
				write: func(text string) error {
					written = text
					return testCase.writeErr
				},
				supported: func() bool { return testCase.supported },
			}
			err := service.Copy("Repository: acme/widget")
			if !errors.Is(err, testCase.expectedErr) {
				t.Fatalf("expected error %v, got %v", testCase.expectedErr, err)
			}
			if testCase.expectedErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if testCase.expectWritten != (written == "Repository: acme/widget") {
				t.Fatalf("unexpected written text %q", written)
			}
		})
	}
}
