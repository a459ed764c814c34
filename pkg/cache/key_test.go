package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestKey_ParamOrderIndependent(t *testing.T) {
	a := Key{
		Resource: "works",
		Params: url.Values{
			"filter":   []string{"is_oa:true"},
			"per_page": []string{"25"},
			"sort":     []string{"cited_by_count:desc"},
		},
	}

	// Same parameters, built in a different insertion order.
	params := url.Values{}
	params.Set("sort", "cited_by_count:desc")
	params.Set("per_page", "25")
	params.Set("filter", "is_oa:true")
	b := Key{Resource: "works", Params: params}

	if a.String() != b.String() {
		t.Errorf("keys differ for identical requests: %q vs %q", a.String(), b.String())
	}
}

func TestKey_DistinctRequestsDistinctKeys(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
	}{
		{
			name: "different resource",
			a:    Key{Resource: "works"},
			b:    Key{Resource: "authors"},
		},
		{
			name: "different entity id",
			a:    Key{Resource: "works", EntityID: "W1"},
			b:    Key{Resource: "works", EntityID: "W2"},
		},
		{
			name: "different params",
			a:    Key{Resource: "works", Params: url.Values{"page": []string{"1"}}},
			b:    Key{Resource: "works", Params: url.Values{"page": []string{"2"}}},
		},
		{
			name: "entity id vs param",
			a:    Key{Resource: "works", EntityID: "W1"},
			b:    Key{Resource: "works", Params: url.Values{"id": []string{"W1"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.String() == tt.b.String() {
				t.Errorf("distinct requests share key %q", tt.a.String())
			}
		})
	}
}

func TestKey_Canonical(t *testing.T) {
	k := Key{
		Resource: "works",
		EntityID: "W123",
		Params: url.Values{
			"b": []string{"2"},
			"a": []string{"1"},
		},
	}

	want := "works:W123:a=1:b=2"
	if got := k.Canonical(); got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

func TestKey_MultiValueParamsSorted(t *testing.T) {
	a := Key{Resource: "works", Params: url.Values{"select": []string{"id", "title"}}}
	b := Key{Resource: "works", Params: url.Values{"select": []string{"title", "id"}}}

	if a.String() != b.String() {
		t.Error("multi-value parameter order changed the key")
	}
}

func TestKey_StringFormat(t *testing.T) {
	k := Key{Resource: "authors"}
	s := k.String()

	if !strings.HasPrefix(s, "authors:") {
		t.Errorf("key %q does not start with resource prefix", s)
	}
	if len(s) != len("authors:")+16 {
		t.Errorf("key %q does not end with a 16-hex-digit hash", s)
	}
}
