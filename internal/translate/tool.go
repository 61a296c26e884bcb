package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mktr-labs/tooldeck/internal/interfaces"
	"github.com/mktr-labs/tooldeck/internal/tools"
)

// Translator is the remote-API dependency of the toolset, separated out so
// tests can observe whether the network was touched.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Toolset exposes the translation operations.
type Toolset struct {
	client Translator
	logger *slog.Logger
}

// NewToolset wires the translation toolset.
func NewToolset(client Translator, logger *slog.Logger) *Toolset {
	return &Toolset{
		client: client,
		logger: logger.With("component", "translate"),
	}
}

// Tools returns the callable operations of this toolset.
func (t *Toolset) Tools() []interfaces.Tool {
	return []interfaces.Tool{
		tools.NewFunc(
			"translate_text",
			"Translate text using the DeepL API. The target language code must be one of the supported set.",
			map[string]tools.Param{
				"text":        {Type: "string", Description: "The text to translate"},
				"target_lang": {Type: "string", Description: "Target language code, e.g. 'EN', 'DE', 'FR'"},
			},
			[]string{"text", "target_lang"},
			t.translateText,
		),
		tools.NewFunc(
			"list_supported_languages",
			"List the language codes supported by the translation tool.",
			map[string]tools.Param{},
			nil,
			t.listSupportedLanguages,
		),
	}
}

func (t *Toolset) translateText(ctx context.Context, params map[string]interface{}) *interfaces.ToolResult {
	text := tools.StringParam(params, "text")
	if strings.TrimSpace(text) == "" {
		return interfaces.Failure("translation failed: text must not be empty")
	}

	code := NormalizeLang(tools.StringParam(params, "target_lang"))
	if !Supported(code) {
		// Fail fast: the remote API is never called for unknown codes.
		return interfaces.Failure(fmt.Sprintf(
			"translation failed: unsupported target language code %q; call list_supported_languages for valid codes", code,
		))
	}

	translated, err := t.client.Translate(ctx, text, code)
	if err != nil {
		return interfaces.Failure(fmt.Sprintf("translation failed: %v", err))
	}

	return interfaces.Success(fmt.Sprintf(
		"Target language: %s (%s)\nTranslated text: %s", LanguageName(code), code, translated,
	))
}

func (t *Toolset) listSupportedLanguages(_ context.Context, _ map[string]interface{}) *interfaces.ToolResult {
	var b strings.Builder
	b.WriteString("Supported languages:\n")
	for _, code := range SupportedCodes() {
		fmt.Fprintf(&b, "%s: %s\n", code, LanguageName(code))
	}
	return interfaces.Success(strings.TrimRight(b.String(), "\n"))
}
