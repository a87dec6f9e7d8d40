package predict

import (
	"strings"

	"github.com/codemend/codemend/pkg/diagnostics"
	"github.com/codemend/codemend/pkg/logger"
)

// Fixer applies predictive patches to file content. Safe for reuse across
// files; all mutable state lives in the per-call edit state.
type Fixer struct {
	config   Config
	imports  map[string]string
	handlers map[string]handler
	log      *logger.Logger
}

type handler func(st *editState, issue diagnostics.Issue) bool

// NewFixer builds the closed code-to-handler dispatch table from
// configuration.
func NewFixer(config Config, log *logger.Logger) *Fixer {
	if log == nil {
		log = logger.NewDefault()
	}

	imports := make(map[string]string, len(defaultImports)+len(config.Imports))
	for name, stmt := range defaultImports {
		imports[name] = stmt
	}
	for name, stmt := range config.Imports {
		imports[name] = stmt
	}

	f := &Fixer{
		config:  config,
		imports: imports,
		log:     log.WithPrefix("predict"),
	}
	f.handlers = map[string]handler{
		codeMissingName:     f.fixMissingName,
		codeUnusedBinding:   f.fixUnusedBinding,
		codeMisplacedImport: f.hoistImport,
	}
	return f
}

// Result separates predictively fixed issues from those deferred to the
// oracle path.
type Result struct {
	Content   string
	Fixed     []diagnostics.Issue
	Remaining []diagnostics.Issue
}

// Apply attempts a predictive patch for each issue in order. An issue is
// fixed only when a rule matches and its line has not already been patched
// in this pass; everything else is passed through unchanged.
func (f *Fixer) Apply(content string, issues []diagnostics.Issue) Result {
	result := Result{Content: content}

	if !f.config.Enabled {
		result.Remaining = issues
		return result
	}

	st := newEditState(content)
	for _, issue := range issues {
		h, ok := f.handlers[issue.Code]
		if ok && !st.touched[issue.Line] && h(st, issue) {
			st.touched[issue.Line] = true
			result.Fixed = append(result.Fixed, issue)
			f.log.Info("predicted fix for %s at %s:%d", issue.Code, issue.File, issue.Line)
		} else {
			result.Remaining = append(result.Remaining, issue)
		}
	}

	result.Content = st.content()
	return result
}

// editState tracks file lines plus the line-number drift caused by earlier
// insertions and removals, so later line-indexed edits land correctly.
type editState struct {
	lines   []string
	edits   []lineEdit
	touched map[int]bool
}

type lineEdit struct {
	pos   int
	delta int
}

func newEditState(content string) *editState {
	return &editState{
		lines:   strings.Split(content, "\n"),
		touched: make(map[int]bool),
	}
}

func (st *editState) content() string {
	return strings.Join(st.lines, "\n")
}

// index maps a 1-based original line number to the current slice index,
// replaying recorded edits in order.
func (st *editState) index(line int) int {
	idx := line - 1
	for _, e := range st.edits {
		if e.pos <= idx {
			idx += e.delta
		}
	}
	return idx
}

func (st *editState) insertLine(pos int, text string) {
	lines := make([]string, 0, len(st.lines)+1)
	lines = append(lines, st.lines[:pos]...)
	lines = append(lines, text)
	lines = append(lines, st.lines[pos:]...)
	st.lines = lines
	st.edits = append(st.edits, lineEdit{pos: pos, delta: 1})
}

func (st *editState) removeLine(pos int) string {
	text := st.lines[pos]
	st.lines = append(st.lines[:pos], st.lines[pos+1:]...)
	st.edits = append(st.edits, lineEdit{pos: pos, delta: -1})
	return text
}

// fixMissingName inserts the conventional import for a well-known undefined
// name. Defers when the name is unknown or the import already exists.
func (f *Fixer) fixMissingName(st *editState, issue diagnostics.Issue) bool {
	name := missingNameToken(issue.Message)
	if name == "" {
		return false
	}

	stmt, ok := f.imports[name]
	if !ok {
		return false
	}

	if strings.Contains(st.content(), stmt) {
		return false
	}

	lines, pos := insertImport(st.lines, stmt)
	st.lines = lines
	st.edits = append(st.edits, lineEdit{pos: pos, delta: 1})
	return true
}

// fixUnusedBinding renames an unused binding with the conventional
// underscore prefix.
func (f *Fixer) fixUnusedBinding(st *editState, issue diagnostics.Issue) bool {
	idx := st.index(issue.Line)
	if idx < 0 || idx >= len(st.lines) {
		return false
	}

	line := st.lines[idx]
	if !strings.Contains(line, " = ") {
		return false
	}

	name := strings.TrimSpace(strings.SplitN(line, "=", 2)[0])
	if name == "" || strings.HasPrefix(name, "_") || strings.ContainsAny(name, " \t") {
		return false
	}

	st.lines[idx] = strings.Replace(line, name, "_"+name, 1)
	return true
}

// hoistImport moves a misplaced import statement up into the top import
// block.
func (f *Fixer) hoistImport(st *editState, issue diagnostics.Issue) bool {
	idx := st.index(issue.Line)
	if idx < 0 || idx >= len(st.lines) {
		return false
	}

	if !isImportLine(st.lines[idx]) {
		return false
	}

	stmt := strings.TrimSpace(st.removeLine(idx))
	lines, pos := insertImport(st.lines, stmt)
	st.lines = lines
	st.edits = append(st.edits, lineEdit{pos: pos, delta: 1})
	return true
}
