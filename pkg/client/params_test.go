package client

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeParams(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		expected map[string]string
		dropped  []string
	}{
		{
			name:     "nil params",
			params:   nil,
			expected: map[string]string{},
		},
		{
			name:     "empty params",
			params:   map[string]any{},
			expected: map[string]string{},
		},
		{
			name:     "updated_after date string",
			params:   map[string]any{"updated_after": "2019-01-01"},
			expected: map[string]string{"updated_after": "2019-01-01"},
		},
		{
			name:     "updated_after RFC3339 string",
			params:   map[string]any{"updated_after": "2019-01-01T15:04:05Z"},
			expected: map[string]string{"updated_after": "2019-01-01"},
		},
		{
			name:     "updated_after time value",
			params:   map[string]any{"updated_after": time.Date(2019, 6, 15, 10, 0, 0, 0, time.UTC)},
			expected: map[string]string{"updated_after": "2019-06-15"},
		},
		{
			name:     "updated_after unparseable string is dropped",
			params:   map[string]any{"updated_after": "not-a-date"},
			expected: map[string]string{},
			dropped:  []string{"updated_after"},
		},
		{
			name:     "updated_after wrong type is dropped",
			params:   map[string]any{"updated_after": 42},
			expected: map[string]string{},
			dropped:  []string{"updated_after"},
		},
		{
			name:     "int slice joined with commas",
			params:   map[string]any{"ids": []int{1, 2, 3}},
			expected: map[string]string{"ids": "1,2,3"},
		},
		{
			name:     "string slice joined with commas",
			params:   map[string]any{"grades": []string{"9", "10", "11"}},
			expected: map[string]string{"grades": "9,10,11"},
		},
		{
			name:     "scalar int stringified",
			params:   map[string]any{"foo": 42},
			expected: map[string]string{"foo": "42"},
		},
		{
			name:     "scalar bool stringified",
			params:   map[string]any{"active": true},
			expected: map[string]string{"active": "true"},
		},
		{
			name: "mixed parameters",
			params: map[string]any{
				"updated_after": "2019-01-01",
				"ids":           []int{7, 8},
				"limit":         50,
				"name":          "smith",
			},
			expected: map[string]string{
				"updated_after": "2019-01-01",
				"ids":           "7,8",
				"limit":         "50",
				"name":          "smith",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, dropped := NormalizeParams(tt.params)

			if !reflect.DeepEqual(normalized, tt.expected) {
				t.Errorf("NormalizeParams() = %v, want %v", normalized, tt.expected)
			}
			if len(dropped) != len(tt.dropped) {
				t.Errorf("dropped = %v, want %v", dropped, tt.dropped)
			}
			for i := range tt.dropped {
				if i < len(dropped) && dropped[i] != tt.dropped[i] {
					t.Errorf("dropped[%d] = %q, want %q", i, dropped[i], tt.dropped[i])
				}
			}
		})
	}
}

func TestNormalizeParams_Idempotent(t *testing.T) {
	input := map[string]any{
		"updated_after": "2019-01-01",
		"ids":           "1,2,3",
		"foo":           "42",
	}

	first, dropped := NormalizeParams(input)
	if len(dropped) != 0 {
		t.Fatalf("First pass dropped %v, want none", dropped)
	}

	asAny := make(map[string]any, len(first))
	for k, v := range first {
		asAny[k] = v
	}

	second, dropped := NormalizeParams(asAny)
	if len(dropped) != 0 {
		t.Fatalf("Second pass dropped %v, want none", dropped)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalization not idempotent: %v != %v", first, second)
	}
}
