package tools

import (
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"auraagent/ingredient"
	"auraagent/kitchen"
)

// Input keys shared across tools.
const (
	LanguageKey  = "language"
	FromImageKey = "from_image"
)

func languageSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Reply language code",
		Enum:        []any{string(kitchen.English), string(kitchen.Vietnamese)},
	}
}

func stringArg(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return strings.TrimSpace(s)
}

func boolArg(input map[string]any, key string) bool {
	switch v := input[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func floatArg(input map[string]any, key string) float64 {
	switch v := input[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case interface{ Float64() (float64, error) }:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}

// stringsArg accepts a JSON array of strings or a single delimited string.
func stringsArg(input map[string]any, key string) []string {
	var out []string
	switch v := input[key].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		out = ingredient.Split(v)
	}
	return out
}

func languageArg(input map[string]any) kitchen.Language {
	return kitchen.ParseLanguage(stringArg(input, LanguageKey))
}
