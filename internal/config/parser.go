package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// stringParsers maps a job file format to its content parser.
var stringParsers = map[string]func(string) *ParseResult{
	FormatJSON: ParseJSONString,
	FormatYAML: ParseYAMLString,
	FormatTOML: ParseTOMLString,
}

// ParseFile parses a job file without validating it. The format is taken from
// the extension, or sniffed from the content when the extension is unknown.
func ParseFile(filepath string) *ParseResult {
	content, err := os.ReadFile(filepath) // #nosec G304 -- job file path comes from the command line
	if err != nil {
		return &ParseResult{
			FilePath: filepath,
			Format:   DetectFormat(filepath),
			Errors: []ParseError{{
				Path:    filepath,
				Message: fmt.Sprintf("failed to read file: %v", err),
				Type:    ErrorTypeIO,
			}},
		}
	}

	format := DetectFormat(filepath)
	if format == "" {
		format = SniffFormat(string(content))
	}
	parse, ok := stringParsers[format]
	if !ok {
		return &ParseResult{
			FilePath: filepath,
			Errors: []ParseError{{
				Path:    filepath,
				Message: "unable to detect job file format: not valid JSON, YAML or TOML",
				Type:    ErrorTypeFormat,
			}},
		}
	}

	result := parse(string(content))
	result.FilePath = filepath
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filepath
		}
	}
	return result
}

// ParseConfig parses and validates a job file.
// Validation is skipped when parsing fails.
func ParseConfig(filepath string) *Result {
	parsed := ParseFile(filepath)
	result := &Result{
		Data:        parsed.Data,
		ParseErrors: parsed.Errors,
		FilePath:    filepath,
		Format:      parsed.Format,
	}
	if !parsed.IsValid() {
		return result
	}

	result.ValidationErrors = ValidateConfig(parsed.Data).Errors
	return result
}

// ParseConfigString parses and validates job content. If format is empty it is
// sniffed from the content.
func ParseConfigString(content string, format string) *Result {
	if format == "" {
		format = SniffFormat(content)
	}
	parse, ok := stringParsers[format]
	if !ok {
		return &Result{
			Format: format,
			ParseErrors: []ParseError{{
				Message: fmt.Sprintf("unsupported format: %q", format),
				Type:    ErrorTypeFormat,
			}},
		}
	}

	parsed := parse(content)
	result := &Result{
		Data:        parsed.Data,
		ParseErrors: parsed.Errors,
		Format:      parsed.Format,
	}
	if parsed.IsValid() {
		result.ValidationErrors = ValidateConfig(parsed.Data).Errors
	}
	return result
}

// DetectFormat detects the job file format from the file extension.
// Returns "json", "yaml", "toml", or empty string if the extension is unknown.
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return ""
	}
}

// SniffFormat guesses the format of content. JSON is recognized by its leading
// brace, TOML by successfully decoding to a table, and anything else that
// decodes as YAML is YAML. Returns empty string when nothing matches.
func SniffFormat(content string) string {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return ""
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case isTOML(trimmed):
		return FormatTOML
	case isYAML(trimmed):
		return FormatYAML
	default:
		return ""
	}
}

func isTOML(content string) bool {
	var data map[string]interface{}
	return toml.Unmarshal([]byte(content), &data) == nil && len(data) > 0
}

func isYAML(content string) bool {
	var data interface{}
	return yaml.Unmarshal([]byte(content), &data) == nil && data != nil
}

// ParseJSONString parses JSON job content.
func ParseJSONString(content string) *ParseResult {
	result := &ParseResult{Format: FormatJSON}

	content = strings.TrimSpace(content)
	if content == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected JSON object",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseJSONError(err, content))
		return result
	}
	return withMapping(result, data, "JSON object")
}

// ParseYAMLString parses YAML job content.
func ParseYAMLString(content string) *ParseResult {
	result := &ParseResult{Format: FormatYAML}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected YAML document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseYAMLError(err))
		return result
	}
	return withMapping(result, data, "YAML mapping")
}

// ParseTOMLString parses TOML job content.
func ParseTOMLString(content string) *ParseResult {
	result := &ParseResult{Format: FormatTOML}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected TOML document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data map[string]interface{}
	if err := toml.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseTOMLError(err))
		return result
	}
	result.Data = data
	return result
}

// withMapping stores data in result if it is a mapping. A null document
// parses without error and leaves Data nil for the validator to reject.
func withMapping(result *ParseResult, data interface{}, want string) *ParseResult {
	if data == nil {
		return result
	}
	m, ok := data.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid job file: expected %s, got %T", want, data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = m
	return result
}

// parseJSONError extracts location information from a JSON decoding error.
func parseJSONError(err error, content string) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, syntaxErr.Offset)
		parseErr.Message = fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	}
	return parseErr
}

// offsetToLineColumn converts a byte offset to line and column numbers (1-based).
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// parseYAMLError extracts location information from a YAML decoding error.
func parseYAMLError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		parseErr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 reports positions as "yaml: line X: ..."
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		parseErr.Line = line
	}
	return parseErr
}

// parseTOMLError extracts location information from a TOML decoding error.
func parseTOMLError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		parseErr.Line, parseErr.Column = decodeErr.Position()
		parseErr.Message = fmt.Sprintf("TOML syntax error: %s", decodeErr.Error())
	}
	return parseErr
}
