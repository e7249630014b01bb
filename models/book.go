// Package models defines data structures for the scraper.
package models

import (
	"encoding/json"
	"time"
)

// NotAvailable is the rendered form of any absent field.
const NotAvailable = "not available"

// Absence records why an optional field has no value.
type Absence int

const (
	// Present means the field holds a value.
	Present Absence = iota
	// AbsentNode means the expected element was not in the markup.
	AbsentNode
	// AbsentEmpty means the element was found but carried no text.
	AbsentEmpty
)

func (a Absence) String() string {
	switch a {
	case Present:
		return "present"
	case AbsentNode:
		return "absent_node"
	case AbsentEmpty:
		return "absent_empty"
	default:
		return "unknown"
	}
}

// Text is an optional string field.
type Text struct {
	Value   string
	Absence Absence
}

// Known wraps a present value.
func Known(value string) Text {
	return Text{Value: value, Absence: Present}
}

// Missing returns an absent value with the given reason.
func Missing(reason Absence) Text {
	if reason == Present {
		reason = AbsentNode
	}
	return Text{Absence: reason}
}

// Ok reports whether the field holds a value.
func (t Text) Ok() bool {
	return t.Absence == Present
}

// String renders the value or the sentinel.
func (t Text) String() string {
	if !t.Ok() {
		return NotAvailable
	}
	return t.Value
}

// MarshalJSON encodes the rendered form.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON treats the sentinel as an absent node.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == NotAvailable {
		*t = Missing(AbsentNode)
		return nil
	}
	*t = Known(s)
	return nil
}

// Record is one book extracted from a catalog page.
type Record struct {
	Title          string
	Price          Text
	Availability   Text
	Rating         Rating
	SequenceInPage int
	PageIndex      int
	CollectedAt    time.Time
}

type recordJSON struct {
	Title          string    `json:"title"`
	Price          Text      `json:"price"`
	Availability   Text      `json:"availability"`
	RatingLabel    string    `json:"rating_label"`
	RatingValue    int       `json:"rating_value"`
	SequenceInPage int       `json:"sequence_in_page"`
	PageIndex      int       `json:"page_index"`
	CollectedAt    time.Time `json:"collected_at"`
}

// MarshalJSON adds the derived rating label and value.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Title:          r.Title,
		Price:          r.Price,
		Availability:   r.Availability,
		RatingLabel:    r.Rating.Label(),
		RatingValue:    r.Rating.Value(),
		SequenceInPage: r.SequenceInPage,
		PageIndex:      r.PageIndex,
		CollectedAt:    r.CollectedAt,
	})
}

// UnmarshalJSON restores the rating from its label; the numeric value is
// derived and ignored.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		Title:          raw.Title,
		Price:          raw.Price,
		Availability:   raw.Availability,
		Rating:         ParseRating(raw.RatingLabel),
		SequenceInPage: raw.SequenceInPage,
		PageIndex:      raw.PageIndex,
		CollectedAt:    raw.CollectedAt,
	}
	return nil
}
