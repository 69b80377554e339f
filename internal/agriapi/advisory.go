package agriapi

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Known advisory fields.
const (
	FieldCropRecommendation = "crop_recommendation"
	FieldIrrigationAdvice   = "irrigation_advice"
	FieldColdRisk           = "cold_risk"
)

// AdvisoryRecord is an opaque advisory document. Only a handful of
// optional fields are read.
type AdvisoryRecord struct {
	raw string
}

// NewAdvisoryRecord wraps a raw JSON document.
func NewAdvisoryRecord(raw string) *AdvisoryRecord {
	return &AdvisoryRecord{raw: raw}
}

// Indented returns the document pretty-printed with two-space indent, as
// embedded in prompts. Invalid documents are returned unchanged.
func (a *AdvisoryRecord) Indented() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(a.raw), "", "  "); err != nil {
		return a.raw
	}
	return buf.String()
}

// Field returns a top-level field as text, or "" when absent or empty.
func (a *AdvisoryRecord) Field(name string) string {
	v := gjson.Get(a.raw, name)
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// City returns the record's city, or "".
func (a *AdvisoryRecord) City() string { return a.Field("city") }

// PH returns inputs.ph as text, or "" when absent.
func (a *AdvisoryRecord) PH() string {
	v := gjson.Get(a.raw, "inputs.ph")
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}
