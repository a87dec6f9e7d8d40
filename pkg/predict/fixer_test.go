package predict

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemend/codemend/pkg/diagnostics"
)

func TestMissingNameToken(t *testing.T) {
	assert.Equal(t, "json", missingNameToken("Undefined name `json`"))
	assert.Equal(t, "Path", missingNameToken("F821 Undefined name `Path` in module"))
	assert.Equal(t, "", missingNameToken("undefined name json"))
	assert.Equal(t, "", missingNameToken(""))
}

func TestMissingNameInsertsImport(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := strings.Join([]string{
		`"""Module docstring."""`,
		"import os",
		"",
		"data = json.loads(raw)",
	}, "\n")

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 4, Code: "F821", Message: "Undefined name `json`"},
	})

	require.Len(t, result.Fixed, 1)
	assert.Empty(t, result.Remaining)

	lines := strings.Split(result.Content, "\n")
	assert.Equal(t, "import os", lines[1])
	assert.Equal(t, "import json", lines[3])
	assert.Equal(t, "data = json.loads(raw)", lines[4])
}

func TestMissingNameSkipsExistingImport(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := "import json\n\ndata = json.loads(raw)"

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 3, Code: "F821", Message: "Undefined name `json`"},
	})

	assert.Empty(t, result.Fixed)
	assert.Len(t, result.Remaining, 1)
	assert.Equal(t, content, result.Content)
}

func TestMissingNameUnknownTokenDefers(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	result := fixer.Apply("x = frobnicate()", []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F821", Message: "Undefined name `frobnicate`"},
	})

	assert.Empty(t, result.Fixed)
	assert.Len(t, result.Remaining, 1)
}

func TestCustomImportTable(t *testing.T) {
	fixer := NewFixer(Config{
		Enabled: true,
		Imports: map[string]string{"np": "import numpy as np"},
	}, nil)

	result := fixer.Apply("arr = np.zeros(3)", []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F821", Message: "Undefined name `np`"},
	})

	require.Len(t, result.Fixed, 1)
	assert.Contains(t, result.Content, "import numpy as np")
}

func TestUnusedBindingUnderscorePrefix(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := "def f():\n    result = compute()\n    return 1"

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 2, Code: "F841", Message: "Local variable `result` is assigned to but never used"},
	})

	require.Len(t, result.Fixed, 1)
	assert.Contains(t, result.Content, "_result = compute()")
}

func TestUnusedBindingAlreadyPrefixedDefers(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := "_result = compute()"

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F841", Message: "assigned but never used"},
	})

	assert.Empty(t, result.Fixed)
	assert.Equal(t, content, result.Content)
}

func TestHoistMisplacedImport(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := strings.Join([]string{
		"import os",
		"",
		"x = os.getcwd()",
		"import sys",
	}, "\n")

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 4, Code: "E402", Message: "Module level import not at top of file"},
	})

	require.Len(t, result.Fixed, 1)

	lines := strings.Split(result.Content, "\n")
	assert.Equal(t, "import os", lines[0])
	assert.Equal(t, "import sys", lines[2])
	assert.Equal(t, "x = os.getcwd()", lines[3])
}

func TestSameLineCollisionDefers(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := "result = json.loads(raw)"

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F841", Message: "assigned but never used"},
		{File: "a.py", Line: 1, Code: "F841", Message: "reported twice"},
	})

	// The second patch on the same line defers to the oracle path.
	assert.Len(t, result.Fixed, 1)
	assert.Len(t, result.Remaining, 1)
	assert.Contains(t, result.Content, "_result")
	assert.NotContains(t, result.Content, "__result")
}

func TestLineDriftAfterInsertion(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	content := strings.Join([]string{
		"import os",
		"",
		"data = json.loads(raw)",
		"unused = 1",
	}, "\n")

	result := fixer.Apply(content, []diagnostics.Issue{
		{File: "a.py", Line: 3, Code: "F821", Message: "Undefined name `json`"},
		{File: "a.py", Line: 4, Code: "F841", Message: "assigned but never used"},
	})

	// The import insertion shifts the file down one line; the rename must
	// still land on the binding, not its neighbor.
	require.Len(t, result.Fixed, 2)
	assert.Contains(t, result.Content, "import json")
	assert.Contains(t, result.Content, "_unused = 1")
}

func TestDisabledPassesEverythingThrough(t *testing.T) {
	fixer := NewFixer(Config{Enabled: false}, nil)

	issues := []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F821", Message: "Undefined name `json`"},
	}

	result := fixer.Apply("x = json.loads(raw)", issues)
	assert.Empty(t, result.Fixed)
	assert.Equal(t, issues, result.Remaining)
	assert.Equal(t, "x = json.loads(raw)", result.Content)
}

func TestUnmatchedCodePassesThrough(t *testing.T) {
	fixer := NewFixer(DefaultConfig(), nil)

	result := fixer.Apply("x = 1", []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "C901", Message: "too complex"},
	})

	assert.Empty(t, result.Fixed)
	assert.Len(t, result.Remaining, 1)
}

func TestInsertImportPositions(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected int
	}{
		{
			name:     "empty file",
			lines:    []string{""},
			expected: 0,
		},
		{
			name:     "after docstring",
			lines:    []string{`"""Doc."""`, "x = 1"},
			expected: 1,
		},
		{
			name:     "after import block",
			lines:    []string{"import os", "import sys", "", "x = 1"},
			expected: 3,
		},
		{
			name:     "before first code line",
			lines:    []string{"# comment", "x = 1"},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, pos := insertImport(tt.lines, "import json")
			assert.Equal(t, tt.expected, pos)
			assert.Equal(t, "import json", lines[pos])
			assert.Len(t, lines, len(tt.lines)+1)
		})
	}
}
