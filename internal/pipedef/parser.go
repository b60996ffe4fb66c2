package pipedef

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseDocument loads a pipeline definition from disk, resolves its
// `definitions` substitutions, validates it, and returns the normalized
// document. Both accepted textual serializations (YAML and JSON) decode
// through the same YAML parser: JSON is a syntactic subset of YAML 1.2 flow
// style, so a single decode path handles both without format sniffing.
func ParseDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, streamyerrors.NewParseError(path, 0, err)
	}

	doc, err := ParseBytes(data)
	if err != nil {
		if pe, ok := err.(*streamyerrors.ParseError); ok {
			pe.Path = path
			return nil, pe
		}
		return nil, err
	}

	return doc, nil
}

// ParseBytes decodes, resolves definitions, and validates a pipeline
// definition already in memory.
func ParseBytes(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, streamyerrors.NewParseError("", extractLine(err), err)
	}

	if err := ResolveDefinitions(&doc); err != nil {
		return nil, err
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
