package connection

import (
	"errors"
	"fmt"
	"testing"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestEnd_Opposite(t *testing.T) {
	if Head.Opposite() != Tail {
		t.Errorf("Head.Opposite() = %v, want tail", Head.Opposite())
	}
	if Tail.Opposite() != Head {
		t.Errorf("Tail.Opposite() = %v, want head", Tail.Opposite())
	}
}

func TestParseEnd(t *testing.T) {
	tests := []struct {
		input    string
		expected End
		wantErr  bool
	}{
		{"head", Head, false},
		{"tail", Tail, false},
		{"middle", Head, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			end, err := ParseEnd(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEnd(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && end != tt.expected {
				t.Errorf("ParseEnd(%q) = %v, want %v", tt.input, end, tt.expected)
			}
		})
	}
}

func TestNewRequest(t *testing.T) {
	head := NewRequest(Head, 10, strPtr("c1"))
	if head.First == nil || *head.First != 10 || head.After == nil || *head.After != "c1" {
		t.Errorf("head request = %v, want first=10&after=c1", head)
	}
	if head.Last != nil || head.Before != nil {
		t.Error("head request must not set last/before")
	}
	if head.End() != Head {
		t.Errorf("head.End() = %v", head.End())
	}

	tail := NewRequest(Tail, 5, nil)
	if tail.Last == nil || *tail.Last != 5 || tail.Before != nil {
		t.Errorf("tail request = %v, want last=5", tail)
	}
	if tail.First != nil || tail.After != nil {
		t.Error("tail request must not set first/after")
	}
	if tail.End() != Tail {
		t.Errorf("tail.End() = %v", tail.End())
	}
}

func TestFetchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     FetchRequest
		wantErr bool
	}{
		{"first only", FetchRequest{First: intPtr(2)}, false},
		{"first and after", FetchRequest{First: intPtr(2), After: strPtr("a")}, false},
		{"last and before", FetchRequest{Last: intPtr(2), Before: strPtr("b")}, false},
		{"neither", FetchRequest{}, true},
		{"both pairs", FetchRequest{First: intPtr(2), Last: intPtr(2)}, true},
		{"after without first", FetchRequest{After: strPtr("a")}, true},
		{"before without last", FetchRequest{Before: strPtr("b")}, true},
		{"zero first", FetchRequest{First: intPtr(0)}, true},
		{"negative last", FetchRequest{Last: intPtr(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFetchArguments) {
				t.Errorf("Validate() error should wrap ErrInvalidFetchArguments, got %v", err)
			}
		})
	}
}

func TestFetchRequest_Values(t *testing.T) {
	req := FetchRequest{Last: intPtr(3), Before: strPtr("cursor-9")}
	if got := req.Values().Encode(); got != "before=cursor-9&last=3" {
		t.Errorf("Values().Encode() = %q", got)
	}
	if got := (FetchRequest{}).String(); got != "<empty>" {
		t.Errorf("String() = %q, want <empty>", got)
	}
}

func TestParseEdges(t *testing.T) {
	edges := []Edge[int]{{Node: 1, Cursor: "a"}, {Node: 2, Cursor: "b"}}
	parsed := ParseEdges(edges, func(n int) string { return fmt.Sprintf("n%d", n) })

	if len(parsed) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(parsed))
	}
	if parsed[0].Node != "n1" || parsed[1].Cursor != "b" {
		t.Errorf("unexpected parsed edges: %+v", parsed)
	}

	same := ParseEdges(edges, Identity[int]())
	if same[1].Node != 2 {
		t.Errorf("Identity changed node: %+v", same)
	}
}

func TestFetchError(t *testing.T) {
	cause := errors.New("boom")
	err := &FetchError{End: Tail, Initial: true, Err: cause}

	if err.Error() != "initial page fetch from tail failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("FetchError should unwrap to its cause")
	}
}

func TestErrorsEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     error
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", errors.New("x"), nil, false},
		{"same message distinct values", errors.New("x"), errors.New("x"), true},
		{"different message", errors.New("x"), errors.New("y"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorsEqual(tt.a, tt.b); got != tt.expected {
				t.Errorf("ErrorsEqual() = %v, want %v", got, tt.expected)
			}
		})
	}
}
