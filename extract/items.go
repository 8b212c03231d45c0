package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoStructuredData is returned when a response holds no parseable JSON.
var ErrNoStructuredData = errors.New("no structured data in response")

// indexKeys are preferred as the index specifier when an item carries one
// of them. Otherwise the first key in document order is used.
var indexKeys = []string{"index", "indices", "row_index", "row", "rows"}

// ParsedItem is one decoded record of a structured response.
type ParsedItem struct {
	IndexKey       string
	IndexSpecifier any
	Fields         map[string]any
	// Order lists the field keys as they appeared in the response.
	Order []string
}

// DecodeItems recovers the list of records in a model response. A single
// object is treated as a one-element list. Array elements that are not
// objects are skipped.
func DecodeItems(s string) ([]ParsedItem, error) {
	raw, ok := Raw(s)
	if !ok {
		return nil, ErrNoStructuredData
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object or array, got %T", tok)
	}

	switch delim {
	case '{':
		item, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		return []ParsedItem{item}, nil
	case '[':
		var items []ParsedItem
		for dec.More() {
			var elem json.RawMessage
			if err := dec.Decode(&elem); err != nil {
				return nil, err
			}
			elem = bytes.TrimSpace(elem)
			if len(elem) == 0 || elem[0] != '{' {
				continue
			}
			item, err := decodeItem(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

func decodeItem(raw json.RawMessage) (ParsedItem, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return ParsedItem{}, err
	}
	return decodeObject(dec)
}

// decodeObject reads the members of an object whose opening brace has
// already been consumed.
func decodeObject(dec *json.Decoder) (ParsedItem, error) {
	values := make(map[string]any)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ParsedItem{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return ParsedItem{}, fmt.Errorf("expected object key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return ParsedItem{}, err
		}
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return ParsedItem{}, err
	}
	return newParsedItem(values, order), nil
}

func newParsedItem(values map[string]any, order []string) ParsedItem {
	item := ParsedItem{Fields: make(map[string]any, len(values))}
	if len(order) == 0 {
		return item
	}

	item.IndexKey = order[0]
	for _, candidate := range indexKeys {
		if _, ok := values[candidate]; ok {
			item.IndexKey = candidate
			break
		}
	}
	item.IndexSpecifier = values[item.IndexKey]

	for _, key := range order {
		if key == item.IndexKey {
			continue
		}
		item.Fields[key] = values[key]
		item.Order = append(item.Order, key)
	}
	return item
}
