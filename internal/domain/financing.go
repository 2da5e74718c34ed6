package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the review state of a financing request.
// It is the single vocabulary used by every admin screen.
type RequestStatus string

const (
	StatusNew       RequestStatus = "new"
	StatusReviewing RequestStatus = "reviewing"
	StatusApproved  RequestStatus = "approved"
	StatusDenied    RequestStatus = "denied"
)

// legacyStatuses maps labels found in older rows and clients onto the
// unified vocabulary.
var legacyStatuses = map[string]RequestStatus{
	"new":          StatusNew,
	"novo":         StatusNew,
	"pending":      StatusNew,
	"reviewing":    StatusReviewing,
	"em análise":   StatusReviewing,
	"em analise":   StatusReviewing,
	"under review": StatusReviewing,
	"approved":     StatusApproved,
	"aprovado":     StatusApproved,
	"denied":       StatusDenied,
	"recusado":     StatusDenied,
	"rejected":     StatusDenied,
}

// ParseRequestStatus normalizes s into a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, error) {
	if st, ok := legacyStatuses[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// DocumentType identifies one of the required financing documents.
type DocumentType string

const (
	DocResidenceProof DocumentType = "residenceProof"
	DocIncomeProof    DocumentType = "incomeProof"
	DocDriverLicense  DocumentType = "driverLicense"
)

// RequiredDocuments lists the documents every financing request must carry.
var RequiredDocuments = []DocumentType{DocResidenceProof, DocIncomeProof, DocDriverLicense}

// Valid reports whether d is one of the required document types.
func (d DocumentType) Valid() bool {
	for _, r := range RequiredDocuments {
		if d == r {
			return true
		}
	}
	return false
}

// Section groups financing fields on the form.
type Section string

const (
	SectionVehicle      Section = "vehicle"
	SectionPersonal     Section = "personal"
	SectionAddress      Section = "address"
	SectionProfessional Section = "professional"
	SectionBank         Section = "bank"
	SectionAdditional   Section = "additional"
)

// Field formats understood by the step validators.
const (
	FormatEmail = "email"
	FormatPhone = "phone"
	FormatYear  = "year"
	FormatDate  = "date"
	FormatCPF   = "cpf"
	FormatMoney = "money"
	FormatDigit = "digits"
)

// FieldSpec describes one financing form field. Key doubles as the column
// name in financing_requests.
type FieldSpec struct {
	Key       string
	Section   Section
	Label     string
	Required  bool
	Format    string
	MaxLength int
}

// FinancingFields is the static registry of financing form fields.
var FinancingFields = []FieldSpec{
	{Key: "car_brand", Section: SectionVehicle, Label: "Brand", Required: true},
	{Key: "car_model", Section: SectionVehicle, Label: "Model", Required: true},
	{Key: "car_year", Section: SectionVehicle, Label: "Year", Required: true, Format: FormatYear},
	{Key: "car_price", Section: SectionVehicle, Label: "Vehicle price", Required: true, Format: FormatMoney},
	{Key: "down_payment", Section: SectionVehicle, Label: "Down payment", Format: FormatMoney},
	{Key: "installments", Section: SectionVehicle, Label: "Installments", Format: FormatDigit},

	{Key: "full_name", Section: SectionPersonal, Label: "Full name", Required: true},
	{Key: "cpf", Section: SectionPersonal, Label: "CPF", Required: true, Format: FormatCPF},
	{Key: "rg", Section: SectionPersonal, Label: "RG"},
	{Key: "birth_date", Section: SectionPersonal, Label: "Birth date", Required: true, Format: FormatDate},
	{Key: "email", Section: SectionPersonal, Label: "E-mail", Required: true, Format: FormatEmail},
	{Key: "phone", Section: SectionPersonal, Label: "Phone", Required: true, Format: FormatPhone},
	{Key: "marital_status", Section: SectionPersonal, Label: "Marital status"},
	{Key: "mother_name", Section: SectionPersonal, Label: "Mother's name"},
	{Key: "nationality", Section: SectionPersonal, Label: "Nationality"},

	{Key: "zip_code", Section: SectionAddress, Label: "ZIP code", Required: true},
	{Key: "street", Section: SectionAddress, Label: "Street", Required: true},
	{Key: "address_number", Section: SectionAddress, Label: "Number", Required: true},
	{Key: "complement", Section: SectionAddress, Label: "Complement"},
	{Key: "neighborhood", Section: SectionAddress, Label: "Neighborhood", Required: true},
	{Key: "city", Section: SectionAddress, Label: "City", Required: true},
	{Key: "state", Section: SectionAddress, Label: "State", Required: true, MaxLength: 2},

	{Key: "occupation", Section: SectionProfessional, Label: "Occupation", Required: true},
	{Key: "company_name", Section: SectionProfessional, Label: "Company", Required: true},
	{Key: "company_phone", Section: SectionProfessional, Label: "Company phone", Format: FormatPhone},
	{Key: "employment_time", Section: SectionProfessional, Label: "Time employed", Required: true},
	{Key: "monthly_income", Section: SectionProfessional, Label: "Monthly income", Required: true, Format: FormatMoney},
	{Key: "other_income", Section: SectionProfessional, Label: "Other income", Format: FormatMoney},

	{Key: "bank_name", Section: SectionBank, Label: "Bank", Required: true},
	{Key: "bank_agency", Section: SectionBank, Label: "Agency", Required: true},
	{Key: "bank_account", Section: SectionBank, Label: "Account", Required: true},
	{Key: "account_type", Section: SectionBank, Label: "Account type"},
	{Key: "account_time", Section: SectionBank, Label: "Account age"},

	{Key: "reference_name", Section: SectionAdditional, Label: "Personal reference"},
	{Key: "reference_phone", Section: SectionAdditional, Label: "Reference phone", Format: FormatPhone},
	{Key: "additional_info", Section: SectionAdditional, Label: "Additional information", MaxLength: 2000},
}

var fieldIndex = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(FinancingFields))
	for _, f := range FinancingFields {
		m[f.Key] = f
	}
	return m
}()

// LookupField returns the field registered under key.
func LookupField(key string) (FieldSpec, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// FieldsIn returns the registered fields of the given sections, in registry order.
func FieldsIn(sections ...Section) []FieldSpec {
	var out []FieldSpec
	for _, f := range FinancingFields {
		for _, s := range sections {
			if f.Section == s {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// DocumentRef is an uploaded financing document.
type DocumentRef struct {
	URL      string `json:"url"`
	Provided bool   `json:"provided"`
}

// FinancingApplication is the payload the wizard hands to the submission
// adapter.
type FinancingApplication struct {
	Fields    map[string]string
	Documents map[DocumentType]string
}

// FinancingRequest is a stored financing application.
type FinancingRequest struct {
	ID        string                       `json:"id"`
	Status    RequestStatus                `json:"status"`
	Fields    map[string]string            `json:"fields"`
	Documents map[DocumentType]DocumentRef `json:"documents"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// Field returns the value stored for key, or "".
func (r *FinancingRequest) Field(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// FinancingFilter narrows financing request queries.
type FinancingFilter struct {
	Status   RequestStatus
	Query    string
	Page     int
	PageSize int
}

// Offset returns the row offset for the filter's page.
func (f FinancingFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size clamped to 1..100 (default 25).
func (f FinancingFilter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return 25
	case f.PageSize > 100:
		return 100
	default:
		return f.PageSize
	}
}
