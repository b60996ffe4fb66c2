package pipedef

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is the normalized, decoded shape of a pipeline definition,
// accepting either of the two textual serializations (YAML or JSON) and
// either of the two accepted script shapes (legacy or current) described in
// the CLI/document contract.
type Document struct {
	Name            string `validate:"required,min=1,max=200"`
	Version         string `validate:"required"`
	ScriptDirectory string `validate:"required"`
	Definitions     map[string]interface{}
	Context         Context
	Blocks          []BlockDoc `validate:"required,min=1,dive"`
}

// UnmarshalYAML normalizes the version|iteration and
// script_directory|"script directory" key aliases before exposing a single
// canonical field for each.
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name                  string                 `yaml:"name"`
		Version               string                 `yaml:"version"`
		Iteration             string                 `yaml:"iteration"`
		ScriptDirectory       string                 `yaml:"script_directory"`
		ScriptDirectorySpaced string                 `yaml:"script directory"`
		Definitions           map[string]interface{} `yaml:"definitions"`
		Context               Context                `yaml:"context"`
		Blocks                []BlockDoc             `yaml:"blocks"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	d.Name = raw.Name
	d.Version = raw.Version
	if d.Version == "" {
		d.Version = raw.Iteration
	}
	d.ScriptDirectory = raw.ScriptDirectory
	if d.ScriptDirectory == "" {
		d.ScriptDirectory = raw.ScriptDirectorySpaced
	}
	d.Definitions = raw.Definitions
	d.Context = raw.Context
	d.Blocks = raw.Blocks
	return nil
}

// BlockDoc is a parallel group of scripts sharing a serial and a context
// scope.
type BlockDoc struct {
	Name        string `validate:"required"`
	Serial      int
	Description string
	Context     Context
	Scripts     []ScriptDoc `validate:"required,min=1,dive"`
}

// UnmarshalYAML normalizes the scripts|runs key alias.
func (b *BlockDoc) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name        string      `yaml:"name"`
		Serial      int         `yaml:"serial"`
		Description string      `yaml:"description"`
		Context     Context     `yaml:"context"`
		Scripts     []ScriptDoc `yaml:"scripts"`
		Runs        []ScriptDoc `yaml:"runs"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	b.Name = raw.Name
	b.Serial = raw.Serial
	b.Description = raw.Description
	b.Context = raw.Context
	b.Scripts = raw.Scripts
	if len(b.Scripts) == 0 {
		b.Scripts = raw.Runs
	}
	return nil
}

// ScriptDoc is one script entry within a block, normalized from either the
// legacy shape ({name, guid, path, pipe_from, context}) or the current shape
// ({script, path, returns, takes?, context}).
//
// ProducerTag is the identity- and linking-key other scripts reference: the
// current shape's `returns` tag, or the legacy shape's `guid`. TakesTag names
// the upstream producer tag this script consumes from; HasTakes is false for
// source scripts (absent `takes`, or legacy `pipe_from == -1`).
type ScriptDoc struct {
	Identifier  string
	ProducerTag string `validate:"required"`
	ImportPath  string `validate:"required"`
	TakesTag    string
	HasTakes    bool
	Context     Context
}

// UnmarshalYAML detects which of the two script shapes is present and
// normalizes it.
func (s *ScriptDoc) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name     *string     `yaml:"name"`
		GUID     interface{} `yaml:"guid"`
		PipeFrom interface{} `yaml:"pipe_from"`

		Script  *string `yaml:"script"`
		Returns *string `yaml:"returns"`
		Takes   *string `yaml:"takes"`

		Path    string  `yaml:"path"`
		Context Context `yaml:"context"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch {
	case raw.Script != nil || raw.Returns != nil:
		if raw.Script != nil {
			s.Identifier = *raw.Script
		}
		if raw.Returns == nil || *raw.Returns == "" {
			return fmt.Errorf("script %q: returns tag is required", s.Identifier)
		}
		s.ProducerTag = *raw.Returns
		if raw.Takes != nil && *raw.Takes != "" {
			s.TakesTag = *raw.Takes
			s.HasTakes = true
		}
	default:
		if raw.Name != nil {
			s.Identifier = *raw.Name
		}
		guid, err := stringifyTag(raw.GUID)
		if err != nil {
			return fmt.Errorf("script %q: guid: %w", s.Identifier, err)
		}
		s.ProducerTag = guid

		if raw.PipeFrom != nil {
			pipeFrom, err := stringifyTag(raw.PipeFrom)
			if err != nil {
				return fmt.Errorf("script %q: pipe_from: %w", s.Identifier, err)
			}
			if pipeFrom != "-1" && pipeFrom != "" {
				s.TakesTag = pipeFrom
				s.HasTakes = true
			}
		}
	}

	s.ImportPath = raw.Path
	s.Context = raw.Context
	return nil
}

func stringifyTag(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatInt(int64(t), 10), nil
	default:
		return "", fmt.Errorf("unsupported tag type %T", v)
	}
}
