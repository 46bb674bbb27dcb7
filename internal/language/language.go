package language

import "strings"

type entry struct {
	code    string   // ISO 639-1
	display string   // Human-readable name
	aliases []string // ISO 639-2 codes and English names resolving here
}

var table = []entry{
	{"en", "English", []string{"eng", "english"}},
	{"es", "Spanish", []string{"spa", "spanish"}},
	{"fr", "French", []string{"fra", "fre", "french"}},
	{"de", "German", []string{"deu", "ger", "german"}},
	{"it", "Italian", []string{"ita", "italian"}},
	{"pt", "Portuguese", []string{"por", "portuguese"}},
	{"ja", "Japanese", []string{"jpn", "japanese"}},
	{"ko", "Korean", []string{"kor", "korean"}},
	{"zh", "Chinese", []string{"zho", "chi", "chinese"}},
	{"ru", "Russian", []string{"rus", "russian"}},
	{"ar", "Arabic", []string{"ara", "arabic"}},
	{"hi", "Hindi", []string{"hin", "hindi"}},
	{"nl", "Dutch", []string{"nld", "dut", "dutch"}},
	{"pl", "Polish", []string{"pol", "polish"}},
	{"sv", "Swedish", []string{"swe", "swedish"}},
	{"tr", "Turkish", []string{"tur", "turkish"}},
	{"th", "Thai", []string{"tha", "thai"}},
	{"fi", "Finnish", []string{"fin", "finnish"}},
}

var index map[string]*entry

func init() {
	index = make(map[string]*entry, len(table)*3)
	for i := range table {
		e := &table[i]
		index[e.code] = e
		for _, alias := range e.aliases {
			index[alias] = e
		}
	}
}

// base lowercases a tag and strips any regional subtag.
func base(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if idx := strings.IndexAny(tag, "-_"); idx > 0 {
		tag = tag[:idx]
	}
	return tag
}

// Normalize reduces a language tag to a bare ISO 639-1 code. Regional
// variants lose their subtag ("en-US" becomes "en"), and three-letter codes
// and English names resolve through the table ("eng" and "english" both
// become "en"). Unrecognized two-letter codes pass through so an exotic but
// valid code still round-trips; anything else normalizes to the empty string.
func Normalize(tag string) string {
	tag = base(tag)
	if tag == "" {
		return ""
	}
	if e, ok := index[tag]; ok {
		return e.code
	}
	if len(tag) == 2 {
		return tag
	}
	return ""
}

// DisplayName returns the human-readable name for a language tag. Blank
// input reads as "Unknown"; tags the table does not know come back
// uppercased.
func DisplayName(tag string) string {
	tag = base(tag)
	if tag == "" {
		return "Unknown"
	}
	if e, ok := index[tag]; ok {
		return e.display
	}
	return strings.ToUpper(tag)
}

// NormalizeList normalizes every tag in the list, dropping blanks,
// unrecognized entries, and duplicates while preserving order.
func NormalizeList(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		code := Normalize(tag)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
