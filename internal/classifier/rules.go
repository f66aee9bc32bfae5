package classifier

import "github.com/formpilot/formpilot-cli/api/schemas"

// Rule is a static keyword-matching configuration entry mapping signal text
// to a semantic field category. Rules are evaluated independently and never
// depend on each other; the set is immutable at run time.
type Rule struct {
	Category schemas.FieldCategory
	// Keywords are lowercase phrases scored against the signal. Multi-word
	// phrases score higher than single words when they hit.
	Keywords []string
	// AntiKeywords disqualify the rule outright when present in the signal.
	AntiKeywords []string
	// ProfileKey names the profile field supplying a direct value, if any.
	ProfileKey string
	// InputTypes restricts the rule to specific input types. Empty means
	// any type; a field with no declared type is always permitted.
	InputTypes []string
}

// defaultRules is the built-in classification rule set, ordered roughly by
// how often each category shows up on application forms. Order has no
// effect on matching; the highest-confidence rule wins.
var defaultRules = []Rule{
	{
		Category:     schemas.CategoryFirstName,
		Keywords:     []string{"first name", "given name", "forename", "fname", "first"},
		AntiKeywords: []string{"last", "family", "sur"},
		ProfileKey:   "firstName",
	},
	{
		Category:     schemas.CategoryLastName,
		Keywords:     []string{"last name", "family name", "surname", "lname", "last"},
		AntiKeywords: []string{"first", "given"},
		ProfileKey:   "lastName",
	},
	{
		Category:     schemas.CategoryFullName,
		Keywords:     []string{"full name", "your name", "legal name", "name"},
		AntiKeywords: []string{"first", "last", "user", "company", "file", "middle"},
		ProfileKey:   "fullName",
	},
	{
		Category:   schemas.CategoryEmail,
		Keywords:   []string{"email address", "e-mail", "email"},
		ProfileKey: "email",
	},
	{
		Category:   schemas.CategoryPhone,
		Keywords:   []string{"phone number", "mobile number", "telephone", "phone", "mobile", "cell"},
		ProfileKey: "phone",
	},
	{
		Category:   schemas.CategoryLinkedIn,
		Keywords:   []string{"linkedin profile", "linkedin url", "linkedin"},
		ProfileKey: "linkedinUrl",
	},
	{
		Category:   schemas.CategoryGitHub,
		Keywords:   []string{"github profile", "github url", "github"},
		ProfileKey: "githubUrl",
	},
	{
		Category:     schemas.CategoryWebsite,
		Keywords:     []string{"personal website", "portfolio url", "website", "portfolio", "homepage"},
		AntiKeywords: []string{"linkedin", "github"},
		ProfileKey:   "websiteUrl",
	},
	{
		Category:     schemas.CategoryAddress,
		Keywords:     []string{"street address", "address line", "address"},
		AntiKeywords: []string{"email", "city", "state", "zip", "country"},
		ProfileKey:   "address",
	},
	{
		Category:     schemas.CategoryCity,
		Keywords:     []string{"city", "town", "locality"},
		ProfileKey:   "city",
		AntiKeywords: []string{"university"},
	},
	{
		Category:     schemas.CategoryState,
		Keywords:     []string{"state", "province", "region"},
		AntiKeywords: []string{"country", "united states"},
		ProfileKey:   "state",
	},
	{
		Category:   schemas.CategoryZipCode,
		Keywords:   []string{"zip code", "postal code", "zip", "postcode"},
		ProfileKey: "zipCode",
	},
	{
		Category:     schemas.CategoryCountry,
		Keywords:     []string{"country"},
		AntiKeywords: []string{"county"},
		ProfileKey:   "country",
	},
	{
		Category:     schemas.CategoryCurrentCompany,
		Keywords:     []string{"current company", "current employer", "company name", "employer", "organization"},
		AntiKeywords: []string{"previous", "former"},
		ProfileKey:   "currentCompany",
	},
	{
		Category:     schemas.CategoryCurrentTitle,
		Keywords:     []string{"current title", "job title", "current role", "current position", "title"},
		AntiKeywords: []string{"mr", "mrs", "salutation", "book"},
		ProfileKey:   "currentTitle",
	},
	{
		Category:   schemas.CategoryYearsExperience,
		Keywords:   []string{"years of experience", "years experience", "total experience"},
		ProfileKey: "yearsOfExperience",
		InputTypes: []string{"text", "number"},
	},
	{
		Category:   schemas.CategoryUniversity,
		Keywords:   []string{"university", "college", "school name", "institution", "alma mater"},
		ProfileKey: "university",
	},
	{
		Category:   schemas.CategoryDegree,
		Keywords:   []string{"degree", "qualification", "education level"},
		ProfileKey: "degree",
	},
	{
		Category:   schemas.CategoryFieldOfStudy,
		Keywords:   []string{"field of study", "major", "discipline", "area of study"},
		ProfileKey: "fieldOfStudy",
	},
	{
		Category:   schemas.CategoryGraduationYear,
		Keywords:   []string{"graduation year", "graduation date", "year of graduation", "graduated"},
		ProfileKey: "graduationYear",
	},
	{
		Category:   schemas.CategorySalaryExpectation,
		Keywords:   []string{"salary expectation", "expected salary", "desired salary", "compensation expectation", "salary", "compensation", "pay rate"},
		ProfileKey: "salaryExpectation",
	},
	{
		Category:     schemas.CategoryWorkAuthorization,
		Keywords:     []string{"work authorization", "authorized to work", "legally authorized", "right to work", "work permit"},
		AntiKeywords: []string{"sponsor"},
		ProfileKey:   "workAuthorization",
	},
	{
		Category:   schemas.CategoryVisaSponsorship,
		Keywords:   []string{"visa sponsorship", "require sponsorship", "need sponsorship", "sponsorship"},
		ProfileKey: "requiresSponsorship",
	},
	{
		Category:   schemas.CategoryStartDate,
		Keywords:   []string{"start date", "available to start", "earliest start", "availability date", "when can you start"},
		ProfileKey: "availableStartDate",
	},
	{
		Category:   schemas.CategoryNoticePeriod,
		Keywords:   []string{"notice period", "notice"},
		ProfileKey: "noticePeriod",
	},
	{
		Category:   schemas.CategoryReferralSource,
		Keywords:   []string{"how did you hear", "referral source", "hear about us", "referred by"},
		ProfileKey: "referralSource",
	},
}

// categoryProfileKeys resolves a category back to the profile field that
// sources its direct value. Built from the rule set plus the fast-path
// categories, which never appear as rules.
var categoryProfileKeys = buildCategoryProfileKeys()

func buildCategoryProfileKeys() map[schemas.FieldCategory]string {
	keys := map[schemas.FieldCategory]string{
		schemas.CategoryEmail:    "email",
		schemas.CategoryPhone:    "phone",
		schemas.CategoryLinkedIn: "linkedinUrl",
		schemas.CategoryGitHub:   "githubUrl",
		schemas.CategoryWebsite:  "websiteUrl",
	}
	for _, rule := range defaultRules {
		if rule.ProfileKey != "" {
			keys[rule.Category] = rule.ProfileKey
		}
	}
	return keys
}

// ProfileKeyFor returns the profile key sourcing direct values for a
// category, or "" when the category has none (uploads, AI questions).
func ProfileKeyFor(category schemas.FieldCategory) string {
	return categoryProfileKeys[category]
}

// openQuestionIndicators flag signal text as an open-ended prompt that
// warrants AI generation rather than a profile lookup.
var openQuestionIndicators = []string{
	"why",
	"describe",
	"tell us",
	"tell me",
	"explain",
	"what is your",
	"what are your",
	"experience with",
	"interested in",
	"motivat",
	"cover letter",
	"anything else",
	"additional information",
	"in your own words",
}
