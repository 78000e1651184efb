package parser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/docsearch-mcp/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "testdata/functions_6.js"

func TestNew(t *testing.T) {
	p := New()
	assert.NotNil(t, p)
	assert.Empty(t, p.VarName)
}

func TestParseFile_GeneratorFixture(t *testing.T) {
	p := New()
	result, err := p.ParseFile(fixturePath)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryFunctions, result.Category)
	assert.Equal(t, 6, result.Section)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Entries, 20)

	first := result.Entries[0]
	assert.Equal(t, "gameobject_501", first.Key)
	assert.Equal(t, "GameObject", first.DisplayName)
	require.Len(t, first.Occurrences, 2)
	assert.Equal(t, "../class_game_object.html#a34234b17bf510c0fccad14481cf8795a", first.Occurrences[0].Anchor)
	assert.Equal(t, 1, first.Occurrences[0].LinkFlag)
	assert.Equal(t, "GameObject::GameObject(const char *filepath)", first.Occurrences[0].Owner)
	assert.Equal(t, "GameObject::GameObject(const char *filepath, glm::vec3 defTrans, glm::vec3 defScale, glm::vec3 defRot)",
		first.Occurrences[1].Owner)

	last := result.Entries[len(result.Entries)-1]
	assert.Equal(t, "grass_520", last.Key)
	assert.Equal(t, "Grass", last.DisplayName)
	assert.Equal(t, "class_grass.html", strings.TrimPrefix(last.Occurrences[0].Page(), "../"))

	// Keys follow the generator's naming
	for _, e := range result.Entries {
		name, _, err := SplitKey(e.Key)
		require.NoError(t, err)
		assert.Equal(t, NormalizeKey(e.DisplayName), name, e.Key)
	}
}

func TestParseFile_NotFound(t *testing.T) {
	p := New()
	_, err := p.ParseFile(filepath.Join(t.TempDir(), "missing_0.js"))
	assert.Error(t, err)
}

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		entries int
	}{
		{
			name:    "empty array",
			input:   "var searchData=\n[\n];\n",
			entries: 0,
		},
		{
			name:    "no semicolon",
			input:   "var searchData=[['a_0',['a',['a.html',1,'A']]]]",
			entries: 1,
		},
		{
			name:    "bare array",
			input:   "[['a_0',['a',['a.html',1,'A']]]]",
			entries: 1,
		},
		{
			name:    "double quotes and comments",
			input:   "// generated\nvar searchData = [ /* one */ [\"a_0\", [\"a\", [\"a.html\", 1, \"A\"]]], ];",
			entries: 1,
		},
		{
			name:    "two element occurrence",
			input:   "var searchData=[['a_0',['a',['a.html',1]]]];",
			entries: 1,
		},
		{
			name:    "byte order mark",
			input:   "\ufeffvar searchData=[['a_0',['a',['a.html',1,'A']]]];",
			entries: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Parse(strings.NewReader(tt.input), "all_0.js")
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.Len(t, result.Entries, tt.entries)
		})
	}
}

func TestParse_Escapes(t *testing.T) {
	input := `var searchData=[['operator_28_29_0',['operator()',['a.html#x',1,'Foo\'s \\ barA\x42']]]];`
	result, err := New().Parse(strings.NewReader(input), "functions_0.js")
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, `Foo's \ barAB`, result.Entries[0].Occurrences[0].Owner)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", "var searchData=[['a_0"},
		{"missing equals", "var searchData [[]]"},
		{"missing bracket", "var searchData=[['a_0',['a',['a.html',1,'A']]]"},
		{"trailing garbage", "var searchData=[]; foo"},
		{"unexpected character", "var searchData=[@]"},
		{"not an array", "var searchData='x';"},
		{"unterminated comment", "/* var searchData=[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Parse(strings.NewReader(tt.input), "all_0.js")
			require.Error(t, err)
			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr), "expected SyntaxError, got %T", err)
		})
	}
}

func TestParse_SyntaxErrorPosition(t *testing.T) {
	input := "var searchData=\n[\n  ['a_0',['a',['a.html',1,'A']]],\n  ['b_1' ['b']]\n];\n"
	_, err := New().Parse(strings.NewReader(input), "all_0.js")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, 4, syntaxErr.Line)
	assert.Equal(t, "all_0.js", syntaxErr.File)
}

func TestParse_ShapeErrorsAreRecorded(t *testing.T) {
	input := `var searchData=[
  ['ok_0',['ok',['a.html',1,'A']]],
  ['noocc_1',['noocc']],
  ['badflag_2',['badflag',['a.html','x','A']]],
  [42,['num',['a.html',1,'A']]],
  ['emptyanchor_3',['emptyanchor',['',1,'A']]],
  ['ok_4',['ok2',['b.html',1,'B']]]
];`
	result, err := New().Parse(strings.NewReader(input), "all_0.js")
	require.NoError(t, err)

	assert.True(t, result.HasErrors())
	assert.Len(t, result.Errors, 4)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "ok_0", result.Entries[0].Key)
	assert.Equal(t, "ok_4", result.Entries[1].Key)
	assert.Equal(t, 3, result.Errors[0].Line)
}

func TestParse_VarNameEnforced(t *testing.T) {
	p := &Parser{VarName: DefaultVarName}

	_, err := p.Parse(strings.NewReader("var searchData=[];"), "all_0.js")
	assert.NoError(t, err)

	_, err = p.Parse(strings.NewReader("var indexSectionNames=[];"), "all_0.js")
	assert.Error(t, err)
}

func TestEncode_ByteIdenticalRoundTrip(t *testing.T) {
	original, err := os.ReadFile(fixturePath)
	require.NoError(t, err)

	result, err := New().Parse(bytes.NewReader(original), fixturePath)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, result.Entries))
	assert.Equal(t, string(original), buf.String())
}

func TestEncode_RoundTripWithEscapes(t *testing.T) {
	entries := []types.SearchEntry{
		{
			Key:         FormatKey("operator<<", 0),
			DisplayName: "operator<<",
			Occurrences: []types.Occurrence{
				{Anchor: "../a.html#x", LinkFlag: 1, Owner: `It's a "path" \ here`},
				{Anchor: "../b.html", LinkFlag: 0, Owner: ""},
			},
		},
		{
			Key:         FormatKey("line\nbreak", 1),
			DisplayName: "line\nbreak",
			Occurrences: []types.Occurrence{{Anchor: "c.html", LinkFlag: 1, Owner: "C"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, entries))

	result, err := New().Parse(&buf, "all_0.js")
	require.NoError(t, err)
	assert.Equal(t, entries, result.Entries)
}

func TestEncode_RejectsInvalidEntry(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []types.SearchEntry{{Key: "a_0", DisplayName: "a"}})
	assert.ErrorIs(t, err, types.ErrNoOccurrences)
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes_0.js")
	entries := []types.SearchEntry{
		{Key: "aabb_0", DisplayName: "AABB", Occurrences: []types.Occurrence{{Anchor: "class_a_a_b_b.html", LinkFlag: 1, Owner: "AABB"}}},
	}
	require.NoError(t, EncodeFile(path, entries))

	result, err := New().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, types.CategoryClasses, result.Category)
	assert.Equal(t, entries, result.Entries)
}
