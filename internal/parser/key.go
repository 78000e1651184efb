package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

const hexDigits = "0123456789abcdef"

// NormalizeKey converts a display name to the generator's id form.
// ASCII letters and digits are lowercased, bytes of multi-byte UTF-8
// sequences are kept, every other byte becomes '_' plus two hex digits.
//
//	NormalizeKey("GLOBAL_SCALE") == "global_5fscale"
func NormalizeKey(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			sb.WriteByte(c + ('a' - 'A'))
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c >= 0x80:
			sb.WriteByte(c)
		default:
			sb.WriteByte('_')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		}
	}
	return sb.String()
}

// FormatKey builds the unique key for a display name and insertion id
func FormatKey(name string, id int) string {
	return NormalizeKey(name) + "_" + strconv.Itoa(id)
}

// SplitKey splits a key into its normalized name and numeric id
func SplitKey(key string) (string, int, error) {
	i := strings.LastIndexByte(key, '_')
	if i <= 0 || i == len(key)-1 {
		return "", 0, fmt.Errorf("key %q has no numeric suffix", key)
	}
	id, err := strconv.Atoi(key[i+1:])
	if err != nil || id < 0 {
		return "", 0, fmt.Errorf("key %q has no numeric suffix", key)
	}
	return key[:i], id, nil
}

// SplitFileName splits "functions_6.js" into its category and section.
// ok is false for names that are not search index files.
func SplitFileName(name string) (category types.Category, section int, ok bool) {
	base, found := strings.CutSuffix(name, ".js")
	if !found {
		return "", -1, false
	}
	i := strings.LastIndexByte(base, '_')
	if i <= 0 {
		return types.Category(base), -1, false
	}
	suffix := base[i+1:]
	// Sections are numbered in hex: all_9.js, all_a.js ... all_f.js, all_10.js
	n, err := strconv.ParseUint(suffix, 16, 31)
	if err != nil {
		return types.Category(base), -1, false
	}
	return types.Category(base[:i]), int(n), true
}

// IsCategoryName reports whether name can prefix a search index file.
// Names outside the generator's usual set are allowed.
func IsCategoryName(name string) bool {
	if name == "" || strings.ContainsAny(name, "/\\. ") {
		return false
	}
	category, _, ok := SplitFileName(FileName(types.Category(name), 0))
	return ok && string(category) == name
}

// IsSearchDataFile reports whether name looks like <category>_<n>.js.
// The widget scripts (search.js, searchdata.js) are rejected.
func IsSearchDataFile(name string) bool {
	_, _, ok := SplitFileName(name)
	return ok
}

// FileName returns the file name for a category section
func FileName(category types.Category, section int) string {
	return fmt.Sprintf("%s_%x.js", category, section)
}
