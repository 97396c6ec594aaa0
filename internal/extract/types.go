package extract

// Stage names a preprocessing strength. Stages run in the order
// StageRaw, StageMinimal, StageAdvanced.
type Stage string

const (
	StageRaw      Stage = "raw"
	StageMinimal  Stage = "minimal"
	StageAdvanced Stage = "advanced"
)

// TextLine is one OCR detection after normalization.
type TextLine struct {
	Content    string  `json:"content"`
	Top        float64 `json:"top"`
	Confidence float64 `json:"confidence"`
}

// Attempt is the OCR outcome of a single stage. It is not modified after
// NewAttempt returns.
type Attempt struct {
	Stage             Stage      `json:"stage"`
	Lines             []TextLine `json:"lines"`
	AverageConfidence float64    `json:"average_confidence"`
}

// NewAttempt computes the mean line confidence; no lines means 0.
func NewAttempt(stage Stage, lines []TextLine) Attempt {
	var sum float64
	for _, l := range lines {
		sum += l.Confidence
	}
	avg := 0.0
	if len(lines) > 0 {
		avg = sum / float64(len(lines))
	}
	return Attempt{Stage: stage, Lines: lines, AverageConfidence: avg}
}

// Contents returns the line texts in reading order.
func (a Attempt) Contents() []string {
	out := make([]string, len(a.Lines))
	for i, l := range a.Lines {
		out[i] = l.Content
	}
	return out
}

// Fields is what the pattern extractors and role classifier found in the
// OCR text of one attempt.
type Fields struct {
	Name        string
	Designation string
	Company     string
	Phones      []string
	Emails      []string
	Addresses   []string
	Websites    []string
}

// ContactRecord is the structured result of scanning one card. List fields
// are never nil.
type ContactRecord struct {
	Name              string   `json:"name"`
	Designation       string   `json:"designation"`
	Company           string   `json:"company"`
	Phones            []string `json:"phones"`
	Emails            []string `json:"emails"`
	Addresses         []string `json:"addresses"`
	Websites          []string `json:"websites"`
	OverallConfidence float64  `json:"ocr_avg_confidence"`
	Stage             Stage    `json:"stage"`
	QROverride        bool     `json:"qr_override"`
}

// IsEmpty reports whether no contact field was recovered.
func (r ContactRecord) IsEmpty() bool {
	return r.Name == "" && r.Designation == "" && r.Company == "" &&
		len(r.Phones) == 0 && len(r.Emails) == 0 && len(r.Addresses) == 0 && len(r.Websites) == 0
}
