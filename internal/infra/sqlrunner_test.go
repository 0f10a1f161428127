package infra

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitMarker(t *testing.T) {
	query := `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
select 1;
`
	marker, body, err := SplitMarker(query)
	if err != nil {
		t.Fatalf("SplitMarker error: %v", err)
	}
	if marker != "4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(body) != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestSplitMarkerRejectsUntaggedQueries(t *testing.T) {
	tests := map[string]error{
		"":                         ErrEmptyQuery,
		"select 1;":                ErrMissingMarker,
		"--sql not-a-uuid\nselect": ErrMissingMarker,
	}
	for q, want := range tests {
		if _, _, err := SplitMarker(q); !errors.Is(err, want) {
			t.Fatalf("SplitMarker(%q) err = %v, want %v", q, err, want)
		}
	}
}
