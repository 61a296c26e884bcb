// Package translate implements the DeepL translation toolset: a thin HTTP
// client plus the enumerated supported-language set. Unsupported codes fail
// fast without touching the remote API.
package translate

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var languagesYAML []byte

var (
	langOnce  sync.Once
	languages map[string]string
)

func languageTable() map[string]string {
	langOnce.Do(func() {
		languages = make(map[string]string)
		// The table is baked into the binary; failing to parse it is a
		// packaging bug, not a condition to degrade around.
		if err := yaml.Unmarshal(languagesYAML, &languages); err != nil {
			panic(fmt.Sprintf("embedded language table is malformed: %v", err))
		}
	})
	return languages
}

// NormalizeLang upper-cases and trims a target language code.
func NormalizeLang(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Supported reports whether the code belongs to the supported set.
func Supported(code string) bool {
	_, ok := languageTable()[NormalizeLang(code)]
	return ok
}

// LanguageName returns the human-readable name for a supported code.
func LanguageName(code string) string {
	return languageTable()[NormalizeLang(code)]
}

// SupportedCodes returns the supported codes in sorted order.
func SupportedCodes() []string {
	table := languageTable()
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
