package filter

import (
	"github.com/tidwall/gjson"
)

// Record is the metadata kept in the index for one filter-file entry.
type Record struct {
	Identifier string
	// Categories holds the string members of the category array, in order.
	Categories []string
	// HasCategories is true when the category key was present as an array.
	HasCategories bool
	DisplayName   string
	// HasName is true when the name key was present as a string.
	HasName bool
}

// Keys names the JSON keys read from filter-file lines.
type Keys struct {
	Identifier string
	Category   string
	Name       string
}

// ParseRecord extracts a Record from one filter-file line. It reports false
// when the line is not a JSON object or its identifier is missing or not a
// string. Keys are matched literally; dots and wildcards have no meaning.
func ParseRecord(line []byte, keys Keys) (Record, bool) {
	root, ok := parseObject(line)
	if !ok {
		return Record{}, false
	}

	id := root.Get(gjson.Escape(keys.Identifier))
	if id.Type != gjson.String {
		return Record{}, false
	}
	rec := Record{Identifier: id.Str}

	if keys.Category != "" {
		if cats := root.Get(gjson.Escape(keys.Category)); cats.IsArray() {
			rec.HasCategories = true
			cats.ForEach(func(_, v gjson.Result) bool {
				if v.Type == gjson.String {
					rec.Categories = append(rec.Categories, v.Str)
				}
				return true
			})
		}
	}

	if keys.Name != "" {
		if name := root.Get(gjson.Escape(keys.Name)); name.Type == gjson.String {
			rec.DisplayName = name.Str
			rec.HasName = true
		}
	}

	return rec, true
}

// Identifier extracts the string value of key from a data-file line. It
// reports false when the line is not a JSON object or the value is missing
// or not a string.
func Identifier(line []byte, key string) (string, bool) {
	root, ok := parseObject(line)
	if !ok {
		return "", false
	}
	id := root.Get(gjson.Escape(key))
	if id.Type != gjson.String {
		return "", false
	}
	return id.Str, true
}

func parseObject(line []byte) (gjson.Result, bool) {
	if len(line) == 0 || !gjson.ValidBytes(line) {
		return gjson.Result{}, false
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	return root, true
}
