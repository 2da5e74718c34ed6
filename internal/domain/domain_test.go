package domain

import (
	"errors"
	"testing"
)

func TestParseRequestStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    RequestStatus
		wantErr bool
	}{
		{"new", StatusNew, false},
		{"pending", StatusNew, false},
		{"Em análise", StatusReviewing, false},
		{"  reviewing ", StatusReviewing, false},
		{"Aprovado", StatusApproved, false},
		{"APPROVED", StatusApproved, false},
		{"Recusado", StatusDenied, false},
		{"denied", StatusDenied, false},
		{"archived", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRequestStatus(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("ParseRequestStatus(%q) error = %v, want ErrInvalidStatus", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRequestStatus(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRequestStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFeatures(t *testing.T) {
	got, err := ParseFeatures([]string{"GPS", " airbag", "gps", ""})
	if err != nil {
		t.Fatalf("ParseFeatures() error = %v", err)
	}
	want := []FeatureTag{FeatureGPS, FeatureAirbag}
	if len(got) != len(want) {
		t.Fatalf("ParseFeatures() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseFeatures()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := ParseFeatures([]string{"gps", "jetpack"}); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("ParseFeatures(unknown) error = %v, want ErrUnknownFeature", err)
	}
}

func TestFinancingFieldsRegistry(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range FinancingFields {
		if seen[f.Key] {
			t.Errorf("duplicate field key %q", f.Key)
		}
		seen[f.Key] = true
		if f.Label == "" {
			t.Errorf("field %q has no label", f.Key)
		}
	}

	total := 0
	for _, s := range []Section{SectionVehicle, SectionPersonal, SectionAddress, SectionProfessional, SectionBank, SectionAdditional} {
		total += len(FieldsIn(s))
	}
	if total != len(FinancingFields) {
		t.Errorf("sections cover %d fields, registry has %d", total, len(FinancingFields))
	}

	if _, ok := LookupField("cpf"); !ok {
		t.Error("LookupField(cpf) not found")
	}
	if _, ok := LookupField("nope"); ok {
		t.Error("LookupField(nope) found")
	}
}

func TestDocumentTypeValid(t *testing.T) {
	for _, d := range RequiredDocuments {
		if !d.Valid() {
			t.Errorf("%q.Valid() = false", d)
		}
	}
	if DocumentType("passport").Valid() {
		t.Error("passport.Valid() = true")
	}
}

func TestListingFilterPaging(t *testing.T) {
	tests := []struct {
		f          ListingFilter
		wantLimit  int
		wantOffset int
	}{
		{ListingFilter{}, 20, 0},
		{ListingFilter{Page: 3, PageSize: 10}, 10, 20},
		{ListingFilter{Page: 2, PageSize: 500}, 100, 100},
		{ListingFilter{Page: -1, PageSize: 5}, 5, 0},
	}
	for _, tt := range tests {
		if got := tt.f.Limit(); got != tt.wantLimit {
			t.Errorf("%+v Limit() = %d, want %d", tt.f, got, tt.wantLimit)
		}
		if got := tt.f.Offset(); got != tt.wantOffset {
			t.Errorf("%+v Offset() = %d, want %d", tt.f, got, tt.wantOffset)
		}
	}
}

func TestPrimaryImage(t *testing.T) {
	l := VehicleListing{Images: []VehicleImage{{ID: "a"}, {ID: "b", Primary: true}}}
	if p := l.PrimaryImage(); p == nil || p.ID != "b" {
		t.Errorf("PrimaryImage() = %v, want b", p)
	}
	if p := (&VehicleListing{}).PrimaryImage(); p != nil {
		t.Errorf("PrimaryImage() on empty = %v, want nil", p)
	}
}
