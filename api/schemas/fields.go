package schemas

// FieldCategory is the closed set of semantic roles a form field can be
// assigned by the classifier. Exactly one category applies per field.
type FieldCategory string

const (
	CategoryFirstName         FieldCategory = "first_name"
	CategoryLastName          FieldCategory = "last_name"
	CategoryFullName          FieldCategory = "full_name"
	CategoryEmail             FieldCategory = "email"
	CategoryPhone             FieldCategory = "phone"
	CategoryLinkedIn          FieldCategory = "linkedin"
	CategoryGitHub            FieldCategory = "github"
	CategoryWebsite           FieldCategory = "website"
	CategoryAddress           FieldCategory = "address"
	CategoryCity              FieldCategory = "city"
	CategoryState             FieldCategory = "state"
	CategoryZipCode           FieldCategory = "zip_code"
	CategoryCountry           FieldCategory = "country"
	CategoryCurrentCompany    FieldCategory = "current_company"
	CategoryCurrentTitle      FieldCategory = "current_title"
	CategoryYearsExperience   FieldCategory = "years_experience"
	CategoryUniversity        FieldCategory = "university"
	CategoryDegree            FieldCategory = "degree"
	CategoryFieldOfStudy      FieldCategory = "field_of_study"
	CategoryGraduationYear    FieldCategory = "graduation_year"
	CategorySalaryExpectation FieldCategory = "salary_expectation"
	CategoryWorkAuthorization FieldCategory = "work_authorization"
	CategoryVisaSponsorship   FieldCategory = "visa_sponsorship"
	CategoryStartDate         FieldCategory = "start_date"
	CategoryNoticePeriod      FieldCategory = "notice_period"
	CategoryReferralSource    FieldCategory = "referral_source"
	CategoryResumeUpload      FieldCategory = "resume_upload"
	CategoryCoverLetterUpload FieldCategory = "cover_letter_upload"
	CategoryAIQuestion        FieldCategory = "ai_question"
	CategoryUnknown           FieldCategory = "unknown"
)

// DetectedField describes one form control found by the page scanner,
// annotated in place as it moves through the autofill pipeline. The identity
// and shape fields are produced externally and only round-tripped by the
// core; the classification outputs are owned by the pipeline.
type DetectedField struct {
	// Identity (scanner-owned, stable for one scan session).
	ID          string `json:"id"`
	ElementID   string `json:"elementId"`
	ElementName string `json:"elementName"`
	XPath       string `json:"xpath,omitempty"`

	// Shape.
	TagName   string   `json:"tagName"`   // input, textarea, select
	InputType string   `json:"inputType"` // text, email, tel, url, file, ...
	Options   []string `json:"options,omitempty"`

	// Descriptive signals.
	Label        string `json:"label"`
	Placeholder  string `json:"placeholder"`
	Required     bool   `json:"required"`
	CurrentValue string `json:"currentValue,omitempty"`

	// Classification outputs (pipeline-owned).
	Category       FieldCategory `json:"category"`
	Confidence     float64       `json:"confidence"`
	SuggestedValue string        `json:"suggestedValue"`
	AIGenerated    bool          `json:"aiGenerated"`
	UserEdited     bool          `json:"userEdited"`
}

// IsTextArea reports whether the field is a multi-line text control.
func (f *DetectedField) IsTextArea() bool {
	return f.TagName == "textarea"
}

// IsSelect reports whether the field carries an enumerated option list.
func (f *DetectedField) IsSelect() bool {
	return f.TagName == "select"
}

// UserProfile is a read-only snapshot of the user's stored answers, a flat
// mapping from semantic key (firstName, email, linkedinUrl, ...) to string
// value, plus a free-form custom mapping for anything the fixed keys miss.
type UserProfile struct {
	Fields       map[string]string `json:"fields"`
	CustomFields map[string]string `json:"customFields,omitempty"`
}

// Get returns the profile value for a semantic key, consulting the fixed
// fields first and the custom mapping second. A missing key yields "".
func (p UserProfile) Get(key string) string {
	if v, ok := p.Fields[key]; ok && v != "" {
		return v
	}
	return p.CustomFields[key]
}

// FillInstruction is one entry of the core -> filler boundary: the external
// filler writes Value back into the page element identified by FieldID.
type FillInstruction struct {
	FieldID string `json:"id"`
	Value   string `json:"value"`
}

// ScanSnapshot is the payload a page scan hands to the autofill pipeline:
// the detected fields plus whatever generation context is available.
type ScanSnapshot struct {
	SessionID      string          `json:"sessionId,omitempty"`
	Fields         []DetectedField `json:"fields"`
	JobDescription string          `json:"jobDescription,omitempty"`
	ResumeText     string          `json:"resumeText,omitempty"`
	KnowledgeBase  string          `json:"knowledgeBase,omitempty"`
}
