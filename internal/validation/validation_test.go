package validation

import (
	"errors"
	"reflect"
	"testing"
)

var known = []string{"Benin", "Sierra Leone", "Togo"}

func TestValidateCountries_Empty(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
	}{
		{"nil", nil},
		{"blank", []string{""}},
		{"spaces and commas", []string{"  ", " , "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCountries(tc.inputs, known)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Errorf("got %v, want nil (all countries)", got)
			}
		})
	}
}

// TestValidateCountries_Canonicalizes verifies that names are matched case-insensitively,
// split on commas, and deduplicated in first-seen order.
func TestValidateCountries_Canonicalizes(t *testing.T) {
	got, err := ValidateCountries([]string{" togo ", "sierra leone,BENIN", "Togo"}, known)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Togo", "Sierra Leone", "Benin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestValidateCountries_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"unknown", "Ghana", ErrCountryUnknown},
		{"slash", "Be/nin", ErrCountryInvalidChars},
		{"digits", "Togo2", ErrCountryInvalidChars},
		{"control", "To\x00go", ErrCountryInvalidChars},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCountries([]string{tc.input}, known)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{"empty uses default", "", 10, nil},
		{"valid", " 3 ", 3, nil},
		{"at max", "50", 50, nil},
		{"zero", "0", 0, ErrLimitInvalid},
		{"negative", "-1", 0, ErrLimitInvalid},
		{"not a number", "ten", 0, ErrLimitInvalid},
		{"too large", "51", 0, ErrLimitTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateLimit(tc.input, 10, 50)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}
