package model

// BoundingBox is normalized to the image size, as Custom Vision reports it.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Candidate is one classifier prediction. Probability is within [0,1].
type Candidate struct {
	Label       string       `json:"label"`
	Probability float64      `json:"probability"`
	TagID       string       `json:"tag_id,omitempty"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// Source names the signal that chose a Decision's label.
type Source string

const (
	SourceNone       Source = "none"
	SourceClassifier Source = "classifier"
	SourceOCR        Source = "ocr"
	SourceLLM        Source = "llm"
)

type Decision struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	OCRText    string  `json:"ocr_text"`
	Similarity float64 `json:"similarity"`
	Source     Source  `json:"source"`
}

// Percent is the confidence as shown to users.
func (d Decision) Percent() float64 {
	return d.Confidence * 100
}

// Matched reports whether the label came from a candidate rather than a sentinel.
func (d Decision) Matched() bool {
	return d.Source != SourceNone
}

type Analysis struct {
	RequestID  string      `json:"request_id"`
	Header     string      `json:"header"`
	Detail     string      `json:"detail"`
	Decision   Decision    `json:"decision"`
	Candidates []Candidate `json:"candidates"`
}
