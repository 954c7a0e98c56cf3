package labelnorm_test

import (
	"testing"

	"github.com/parleyhq/parley/internal/app/system/labelnorm"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"React", "react"},
		{"#React", "react"},
		{"  #React  ", "react"},
		{"##double", "double"},
		{"Café", "cafe"},
		{"GoLang", "golang"},
		{"", ""},
		{"   ", ""},
		{"#", ""},
	}

	for _, tc := range cases {
		if got := labelnorm.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"#React", "React"},
		{" React ", "React"},
		{"golang", "golang"},
	}

	for _, tc := range cases {
		if got := labelnorm.Display(tc.in); got != tc.want {
			t.Errorf("Display(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSet(t *testing.T) {
	set := labelnorm.Set([]string{"#React", "react", "Golang", "", "  ", "#"})

	if len(set) != 2 {
		t.Fatalf("set size: got %d, want 2 (%v)", len(set), set)
	}
	if set["react"] != "React" {
		t.Errorf("react display: got %q, want %q (first occurrence wins)", set["react"], "React")
	}
	if set["golang"] != "Golang" {
		t.Errorf("golang display: got %q, want %q", set["golang"], "Golang")
	}
}

func TestSet_Empty(t *testing.T) {
	if set := labelnorm.Set(nil); set != nil {
		t.Errorf("Set(nil): got %v, want nil", set)
	}
	if set := labelnorm.Set([]string{"", "#"}); len(set) != 0 {
		t.Errorf("Set of only empties: got %v, want empty", set)
	}
}
