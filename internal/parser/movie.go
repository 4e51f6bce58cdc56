package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/raphaelgruber/nextwatch/internal/models"
)

// decodeMovie maps a JSON object onto models.Movie.
// Unknown keys are ignored and mistyped values leave the field empty.
func decodeMovie(raw json.RawMessage) (models.Movie, error) {
	if !isObject(raw) {
		return models.Movie{}, errors.New("recommendation is not an object")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.Movie{}, err
	}

	return models.Movie{
		Title:          textValue(obj["title"]),
		Year:           intValue(obj["year"]),
		Genre:          textValue(obj["genre"]),
		Rating:         textValue(obj["rating"]),
		Description:    textValue(obj["description"]),
		Director:       textValue(obj["director"]),
		Cast:           listValue(obj["cast"]),
		WhyRecommended: textValue(obj["whyRecommended"]),
		PosterURL:      textValue(obj["posterUrl"]),
	}, nil
}

// textValue accepts a JSON string or number; numbers keep their literal form.
func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// intValue accepts a JSON number or a numeric string such as "2019".
func intValue(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clampInt(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return clampInt(f)
		}
	}
	return 0
}

// listValue accepts an array of strings or a single string.
// Non-string array elements are skipped.
func listValue(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		var out []string
		for _, item := range items {
			var s string
			if err := json.Unmarshal(item, &s); err == nil && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
		return []string{strings.TrimSpace(s)}
	}
	return nil
}

func clampInt(f float64) int {
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
