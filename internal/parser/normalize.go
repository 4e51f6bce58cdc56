// Package parser turns raw LLM replies into recommendation records.
//
// The model is asked for {"movies": [...]} but frequently answers with a bare
// array, a "recommendations" wrapper, or an object keyed by arbitrary names.
// Classify maps every reply onto exactly one Shape; Normalize then truncates
// the items and decodes them leniently into models.Movie.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/raphaelgruber/nextwatch/internal/models"
)

// MaxRecommendations is the number of movies kept from a reply.
const MaxRecommendations = 3

// ErrParseFailure indicates the LLM reply was not JSON or had no usable shape.
var ErrParseFailure = errors.New("failed to parse movie recommendations")

// Shape identifies which layout the LLM reply used.
type Shape int

const (
	// ShapeArray is a top-level JSON array of movies.
	ShapeArray Shape = iota + 1
	// ShapeMovies is an object with a "movies" array.
	ShapeMovies
	// ShapeRecommendations is an object with a "recommendations" array.
	ShapeRecommendations
	// ShapeObjectFields is any other object; its object-valued fields are the movies.
	ShapeObjectFields
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeMovies:
		return "movies"
	case ShapeRecommendations:
		return "recommendations"
	case ShapeObjectFields:
		return "object_fields"
	default:
		return "unknown"
	}
}

// Payload is a classified reply: its shape and the raw candidate items in order.
type Payload struct {
	Shape Shape
	Items []json.RawMessage
}

// Result is the normalized output of an LLM reply.
type Result struct {
	Shape  Shape
	Movies []models.Movie
}

// field is one key/value pair of a JSON object in document order.
type field struct {
	key   string
	value json.RawMessage
}

// Normalize parses text and returns at most MaxRecommendations movies.
// An object without any usable fields yields an empty, non-nil slice.
func Normalize(text string) (Result, error) {
	payload, err := Classify(text)
	if err != nil {
		return Result{}, err
	}

	items := payload.Items
	if len(items) > MaxRecommendations {
		items = items[:MaxRecommendations]
	}

	movies := make([]models.Movie, 0, len(items))
	for i, raw := range items {
		m, err := decodeMovie(raw)
		if err != nil {
			return Result{}, fmt.Errorf("%w: item %d: %v", ErrParseFailure, i, err)
		}
		movies = append(movies, m)
	}

	return Result{Shape: payload.Shape, Movies: movies}, nil
}

// Classify decides which Shape text has and extracts its candidate items.
func Classify(text string) (Payload, error) {
	data := bytes.TrimSpace([]byte(text))
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("%w: empty reply", ErrParseFailure)
	}
	if !json.Valid(data) {
		return Payload{}, fmt.Errorf("%w: invalid JSON", ErrParseFailure)
	}

	switch data[0] {
	case '[':
		items, err := decodeArray(data)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Shape: ShapeArray, Items: items}, nil

	case '{':
		fields, err := objectFields(data)
		if err != nil {
			return Payload{}, err
		}
		if v, ok := lookup(fields, "movies"); ok {
			items, err := decodeArray(v)
			if err != nil {
				return Payload{}, fmt.Errorf("movies: %w", err)
			}
			return Payload{Shape: ShapeMovies, Items: items}, nil
		}
		if v, ok := lookup(fields, "recommendations"); ok {
			items, err := decodeArray(v)
			if err != nil {
				return Payload{}, fmt.Errorf("recommendations: %w", err)
			}
			return Payload{Shape: ShapeRecommendations, Items: items}, nil
		}

		items := make([]json.RawMessage, 0, len(fields))
		for _, f := range fields {
			if isObject(f.value) {
				items = append(items, f.value)
			}
		}
		return Payload{Shape: ShapeObjectFields, Items: items}, nil

	default:
		return Payload{}, fmt.Errorf("%w: top-level value is not an object or array", ErrParseFailure)
	}
}

// lookup returns the value of key when it is present and truthy.
// null, false, 0 and "" count as absent.
func lookup(fields []field, key string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.key == key {
			if isFalsy(f.value) {
				return nil, false
			}
			return f.value, true
		}
	}
	return nil, false
}

func isFalsy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '[' || trimmed[0] == '{' {
		return false
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	}
	return false
}

func decodeArray(data json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected an array", ErrParseFailure)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

// objectFields reads the top-level members of a JSON object in document order.
// A repeated key keeps its first position and takes the last value.
func objectFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	var fields []field
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected object key %v", ErrParseFailure, tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}

		if i, seen := index[key]; seen {
			fields[i].value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, field{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrParseFailure)
	}
	return fields, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
