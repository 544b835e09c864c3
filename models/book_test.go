package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLang(t *testing.T) {
	cases := map[string]string{
		"ru": LangRU,
		"kk": LangKK,
		"en": LangEN,
		"kz": LangKK, // legacy alias
		"":   DefaultLang,
		"fr": DefaultLang,
		"RU": DefaultLang, // codes are case-sensitive, unknown falls back
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLang(in), "lang=%q", in)
	}
}

func TestLocalizedTextIn(t *testing.T) {
	full := LocalizedText{LangRU: "Война и мир", LangKK: "Соғыс пен бейбітшілік", LangEN: "War and Peace"}
	assert.Equal(t, "War and Peace", full.In(LangEN))
	assert.Equal(t, "Война и мир", full.In(LangRU))

	// Missing variant falls back to the default language.
	partial := LocalizedText{LangRU: "Война и мир"}
	assert.Equal(t, "Война и мир", partial.In(LangEN))

	// No default either: any non-empty variant beats nothing.
	enOnly := LocalizedText{LangEN: "War and Peace"}
	assert.Equal(t, "War and Peace", enOnly.In(LangKK))

	assert.Equal(t, "", LocalizedText{}.In(LangRU))
}
