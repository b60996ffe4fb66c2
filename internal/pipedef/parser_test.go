package pipedef

import (
	"testing"

	"github.com/stretchr/testify/require"

	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

func TestParseBytesCurrentShape(t *testing.T) {
	t.Parallel()

	doc, err := ParseBytes([]byte(`
name: demo
version: "1"
script_directory: /scripts
blocks:
  - name: ingest
    serial: 0
    description: fetch
    scripts:
      - script: fetch
        path: fetch.py
        returns: raw
`))

	require.NoError(t, err)
	require.Equal(t, "demo", doc.Name)
	require.Equal(t, "/scripts", doc.ScriptDirectory)
	require.Len(t, doc.Blocks, 1)
	require.Equal(t, "raw", doc.Blocks[0].Scripts[0].ProducerTag)
	require.False(t, doc.Blocks[0].Scripts[0].HasTakes)
}

func TestParseBytesLegacyShape(t *testing.T) {
	t.Parallel()

	doc, err := ParseBytes([]byte(`
name: demo
iteration: "1"
script_directory: /scripts
blocks:
  - name: ingest
    serial: 0
    description: fetch
    scripts:
      - name: fetch
        guid: 1
        path: fetch.py
        pipe_from: -1
      - name: transform
        guid: 2
        path: transform.py
        pipe_from: 1
`))

	require.NoError(t, err)
	require.Equal(t, "1", doc.Version, "iteration aliases to version")
	require.Len(t, doc.Blocks[0].Scripts, 2)
	require.False(t, doc.Blocks[0].Scripts[0].HasTakes, "pipe_from -1 means no upstream")
	require.True(t, doc.Blocks[0].Scripts[1].HasTakes)
	require.Equal(t, "1", doc.Blocks[0].Scripts[1].TakesTag)
}

func TestParseBytesJSONIsAccepted(t *testing.T) {
	t.Parallel()

	doc, err := ParseBytes([]byte(`{
		"name": "demo",
		"version": "1",
		"script_directory": "/scripts",
		"blocks": [
			{
				"name": "ingest",
				"serial": 0,
				"description": "fetch",
				"scripts": [
					{"script": "fetch", "path": "fetch.py", "returns": "raw"}
				]
			}
		]
	}`))

	require.NoError(t, err)
	require.Equal(t, "demo", doc.Name)
}

func TestParseBytesMissingRequiredFieldFails(t *testing.T) {
	t.Parallel()

	_, err := ParseBytes([]byte(`
name: demo
version: "1"
script_directory: /scripts
blocks: []
`))

	require.Error(t, err)
	var validationErr *streamyerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestParseBytesMalformedYAMLIsParseError(t *testing.T) {
	t.Parallel()

	_, err := ParseBytes([]byte("name: [unterminated"))

	require.Error(t, err)
	var parseErr *streamyerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseDocumentMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseDocument("/nonexistent/pipeline.yaml")

	require.Error(t, err)
	var parseErr *streamyerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "/nonexistent/pipeline.yaml", parseErr.Path)
}
