package models

import "time"

// Supported catalog languages.
const (
	LangRU = "ru"
	LangKK = "kk"
	LangEN = "en"

	DefaultLang = LangRU
)

var SupportedLangs = []string{LangRU, LangKK, LangEN}

// NormalizeLang maps a user-supplied language code to a supported one.
// "kz" is accepted as a legacy alias for "kk"; anything unknown falls
// back to the default rather than erroring.
func NormalizeLang(lang string) string {
	if lang == "kz" {
		return LangKK
	}
	for _, l := range SupportedLangs {
		if lang == l {
			return l
		}
	}
	return DefaultLang
}

// LocalizedText holds one string per language code. The language the
// text was submitted in is stored verbatim; the other keys carry a
// best-effort machine translation or a copy of the original.
type LocalizedText map[string]string

// In returns the variant for lang, falling back to the default language
// and then to any non-empty variant.
func (t LocalizedText) In(lang string) string {
	if v := t[lang]; v != "" {
		return v
	}
	if v := t[DefaultLang]; v != "" {
		return v
	}
	for _, l := range SupportedLangs {
		if v := t[l]; v != "" {
			return v
		}
	}
	return ""
}

type Book struct {
	ID          int           `bson:"_id" json:"id"` // catalog id: max existing + 1
	Title       LocalizedText `bson:"title" json:"title"`
	Author      LocalizedText `bson:"author" json:"author"`
	Year        int           `bson:"year" json:"year"`
	Publisher   string        `bson:"publisher" json:"publisher"`
	Description LocalizedText `bson:"description,omitempty" json:"description,omitempty"`
	CoverKey    string        `bson:"coverKey,omitempty" json:"-"` // object key in the blob store
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
}
