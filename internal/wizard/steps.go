package wizard

import "github.com/JonMunkholm/dealership/internal/domain"

// Step is a page of the financing wizard.
type Step int

const (
	StepDocuments Step = iota
	StepVehicleInfo
	StepPersonalInfo
	StepProfessionalInfo
	StepBankInfo
	StepAdditionalInfo
)

// LastStep is the step that submits.
const LastStep = StepAdditionalInfo

var stepNames = [...]string{"documents", "vehicle", "personal", "professional", "bank", "additional"}

func (s Step) String() string {
	if s < StepDocuments || s > LastStep {
		return "unknown"
	}
	return stepNames[s]
}

// stepSections maps each form step to the registry sections it collects.
var stepSections = map[Step][]domain.Section{
	StepVehicleInfo:      {domain.SectionVehicle},
	StepPersonalInfo:     {domain.SectionPersonal, domain.SectionAddress},
	StepProfessionalInfo: {domain.SectionProfessional},
	StepBankInfo:         {domain.SectionBank},
	StepAdditionalInfo:   {domain.SectionAdditional},
}

// Fields returns the fields collected on step s.
func (s Step) Fields() []domain.FieldSpec {
	return domain.FieldsIn(stepSections[s]...)
}
