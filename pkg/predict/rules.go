// Package predict applies local, zero-call repairs for well-known diagnostic
// patterns before anything is sent to the fixing oracle. The rule table is a
// closed lookup structure built at startup from configuration; unmatched or
// colliding issues simply defer to the oracle path, so prediction can never
// fail the pipeline.
package predict

import (
	"strings"
)

// Rule codes with predictive handlers.
const (
	codeMissingName     = "F821"
	codeUnusedBinding   = "F841"
	codeMisplacedImport = "E402"
)

// defaultImports maps a well-known undefined name to the import line that
// resolves it.
var defaultImports = map[string]string{
	"json":     "import json",
	"datetime": "from datetime import datetime",
	"logging":  "import logging",
	"os":       "import os",
	"sys":      "import sys",
	"Path":     "from pathlib import Path",
	"List":     "from typing import List",
	"Dict":     "from typing import Dict",
	"Optional": "from typing import Optional",
}

// Config controls the predictive fixer.
type Config struct {
	// Enabled turns prediction off entirely when false; every issue then
	// takes the oracle path.
	Enabled bool

	// Imports extends or overrides the built-in name-to-import table.
	Imports map[string]string
}

// DefaultConfig enables prediction with the built-in import table.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// missingNameToken extracts the undefined name from a missing-name message
// of the form "Undefined name `json`".
func missingNameToken(message string) string {
	const marker = "Undefined name `"
	start := strings.Index(message, marker)
	if start < 0 {
		return ""
	}
	rest := message[start+len(marker):]
	end := strings.Index(rest, "`")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// isImportLine reports whether a source line is an import statement.
func isImportLine(line string) bool {
	stripped := strings.TrimSpace(line)
	return strings.HasPrefix(stripped, "import ") || strings.HasPrefix(stripped, "from ")
}

// insertImport places an import statement at the conventional location:
// after a module docstring and any existing import block, otherwise before
// the first code line. Returns the new lines and the insertion index.
func insertImport(lines []string, stmt string) ([]string, int) {
	insertPos := 0
	inDocstring := false
	docstringChar := ""

	for i, line := range lines {
		stripped := strings.TrimSpace(line)

		if !inDocstring && (strings.HasPrefix(stripped, `"""`) || strings.HasPrefix(stripped, "'''")) {
			docstringChar = `"""`
			if strings.HasPrefix(stripped, "'''") {
				docstringChar = "'''"
			}
			inDocstring = true
			if strings.HasSuffix(stripped, docstringChar) && len(stripped) > 3 {
				inDocstring = false
			}
			continue
		}
		if inDocstring && strings.HasSuffix(stripped, docstringChar) {
			inDocstring = false
			insertPos = i + 1
			continue
		}

		if !inDocstring && stripped != "" && !strings.HasPrefix(stripped, "#") {
			if isImportLine(line) {
				// Insert after the existing import block.
				insertPos = i + 1
				for insertPos < len(lines) && (isImportLine(lines[insertPos]) || strings.TrimSpace(lines[insertPos]) == "") {
					insertPos++
				}
			} else {
				insertPos = i
			}
			break
		}
	}

	result := make([]string, 0, len(lines)+1)
	result = append(result, lines[:insertPos]...)
	result = append(result, stmt)
	result = append(result, lines[insertPos:]...)
	return result, insertPos
}
