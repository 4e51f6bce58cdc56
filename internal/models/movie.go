// Package models defines data structures for Next Watch recommendations.
package models

// DefaultUserID is stored on recommendations made without a user identifier.
const DefaultUserID = "anonymous"

// Movie is one recommended title as returned by the LLM.
// Fields the model omitted stay empty and are left out of JSON output.
type Movie struct {
	Title          string   `json:"title,omitempty" bson:"title,omitempty"`
	Year           int      `json:"year,omitempty" bson:"year,omitempty"`
	Genre          string   `json:"genre,omitempty" bson:"genre,omitempty"`
	Rating         string   `json:"rating,omitempty" bson:"rating,omitempty"`
	Description    string   `json:"description,omitempty" bson:"description,omitempty"`
	Director       string   `json:"director,omitempty" bson:"director,omitempty"`
	Cast           []string `json:"cast,omitempty" bson:"cast,omitempty"`
	WhyRecommended string   `json:"whyRecommended,omitempty" bson:"whyRecommended,omitempty"`
	PosterURL      string   `json:"posterUrl,omitempty" bson:"posterUrl,omitempty"`
}
