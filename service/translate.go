package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/moteeees/library/backend/models"
)

// Translator turns text into another supported language. Failures are
// expected and callers always fall back to the source text; no error
// from here may reach a response.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// httpTranslator calls a LibreTranslate-compatible endpoint. The short
// timeout keeps a slow translation service from blocking writes.
type httpTranslator struct {
	endpoint string
	client   *http.Client
}

func NewHTTPTranslator(endpoint string) Translator {
	return &httpTranslator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (t *httpTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: "auto",
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned %d", resp.StatusCode)
	}
	var data translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if data.TranslatedText == "" {
		return "", fmt.Errorf("translate endpoint returned empty text")
	}
	return data.TranslatedText, nil
}

// Localize translates text into targetLang, returning the input
// unchanged when no translator is configured or the call fails.
func Localize(ctx context.Context, tr Translator, text, targetLang string) string {
	if tr == nil || text == "" {
		return text
	}
	out, err := tr.Translate(ctx, text, targetLang)
	if err != nil {
		return text
	}
	return out
}

// LocalizeAll materializes a text field in every supported language.
// The submitted language keeps the text verbatim; the others get a
// best-effort translation or a copy of the original on failure.
func LocalizeAll(ctx context.Context, tr Translator, text, sourceLang string) models.LocalizedText {
	out := models.LocalizedText{sourceLang: text}
	for _, lang := range models.SupportedLangs {
		if lang == sourceLang {
			continue
		}
		out[lang] = Localize(ctx, tr, text, lang)
	}
	return out
}
