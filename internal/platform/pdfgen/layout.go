package pdfgen

// Layout drives how a completed form renders. Layouts are keyed by form
// title; a form with no layout falls back to a flat label/value listing with
// the signature rendered last.
type Layout struct {
	// IncludePatientInfo adds a last/first name + birthdate row under the title.
	IncludePatientInfo bool
	// IncludeDate adds a line with today's date. This is the only
	// non-deterministic element in the output.
	IncludeDate bool
	// ConsentText names an entry in consentTexts injected into the document.
	ConsentText string
	// ConsentPosition is "top" (before the sections) or "middle" (before the
	// signature section). Empty means no consent block.
	ConsentPosition string
	Sections        []LayoutSection
}

// LayoutSection groups fields under a heading. When ShowDiscontinued is set,
// each field's companion "<name> Discontinued" answer renders as a checkbox
// glyph next to the entry (medication-history style).
type LayoutSection struct {
	Title            string
	Note             string
	Fields           []string
	ShowDiscontinued bool
}

const (
	ConsentPositionTop    = "top"
	ConsentPositionMiddle = "middle"
)

// layouts is the static layout-hints table. Titles not present here use the
// flat fallback.
var layouts = map[string]Layout{
	"Patient Registration": {
		IncludePatientInfo: true,
		IncludeDate:        true,
		Sections: []LayoutSection{
			{Title: "Contact Information", Fields: []string{"Address", "Address2", "City", "State", "Zip", "HmPhone", "WirelessPhone", "Email"}},
			{Title: "Emergency Contact", Fields: []string{"Emergency Contact Name", "Emergency Contact Phone"}},
		},
	},
	"Medical History Update": {
		IncludePatientInfo: true,
		IncludeDate:        true,
		Sections: []LayoutSection{
			{
				Title:            "Current Medications",
				Note:             "Check the box for any medication you have stopped taking.",
				Fields:           []string{"Medication 1", "Medication 2", "Medication 3", "Medication 4", "Medication 5"},
				ShowDiscontinued: true,
			},
			{Title: "Allergies", Fields: []string{"Drug Allergies", "Other Allergies"}},
			{Title: "Medical Conditions", Fields: []string{"Conditions", "Other Conditions"}},
		},
	},
	"Treatment Consent": {
		IncludePatientInfo: true,
		IncludeDate:        true,
		ConsentText:        "treatment-consent",
		ConsentPosition:    ConsentPositionTop,
		Sections: []LayoutSection{
			{Title: "Acknowledgement", Fields: []string{"Printed Name", "Relationship to Patient"}},
		},
	},
	"HIPAA Acknowledgement": {
		IncludePatientInfo: true,
		IncludeDate:        true,
		ConsentText:        "hipaa-notice",
		ConsentPosition:    ConsentPositionMiddle,
		Sections: []LayoutSection{
			{Title: "Authorized Parties", Fields: []string{"Authorized Person 1", "Authorized Person 2"}},
		},
	},
}

// consentTexts holds the static long-form legal/informational blocks.
var consentTexts = map[string]string{
	"treatment-consent": `I authorize the dentist and the dental staff of this practice to perform the ` +
		`diagnostic procedures and dental treatment that, in the judgment of the treating dentist, ` +
		`are necessary or advisable. I understand that dentistry is not an exact science and that no ` +
		`guarantees have been made regarding the outcome of treatment. I have had the opportunity to ` +
		`ask questions about the proposed treatment, its alternatives, and the risks of declining ` +
		`treatment, and all of my questions have been answered to my satisfaction.`,
	"hipaa-notice": `This practice is required by law to maintain the privacy of your protected health ` +
		`information and to provide you with notice of its legal duties and privacy practices. Your ` +
		`health information may be used and disclosed for treatment, payment, and health care ` +
		`operations. You have the right to inspect and copy your health information, to request ` +
		`restrictions on certain uses and disclosures, and to receive an accounting of disclosures. ` +
		`By signing below you acknowledge that you have received and reviewed this notice.`,
}

// LayoutFor returns the layout hints for a form title, and whether any exist.
func LayoutFor(title string) (Layout, bool) {
	l, ok := layouts[title]
	return l, ok
}
