package diagnostics

import (
	"context"
	"encoding/json"
	"os/exec"

	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
)

// ruffSource labels issues produced by the ruff provider.
const ruffSource = "ruff"

// RuffProvider diagnoses Python files by shelling out to ruff with JSON
// output.
type RuffProvider struct {
	command string
	log     *logger.Logger
}

// NewRuffProvider builds a provider. command empty means "ruff".
func NewRuffProvider(command string, log *logger.Logger) *RuffProvider {
	if command == "" {
		command = ruffSource
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &RuffProvider{command: command, log: log.WithPrefix(ruffSource)}
}

// Diagnose runs ruff on one file. A missing or broken ruff yields a
// diagnosis-typed error, which callers treat as zero issues.
func (p *RuffProvider) Diagnose(ctx context.Context, file string) ([]Issue, error) {
	if _, err := exec.LookPath(p.command); err != nil {
		return nil, errors.DiagnosisUnavailableError(file, err)
	}

	// #nosec G204 - command comes from validated configuration
	cmd := exec.CommandContext(ctx, p.command, "check", "--output-format=json", file)
	output, runErr := cmd.Output()

	// ruff exits non-zero when it finds issues, so the output decides.
	issues, parseErr := parseRuffOutput(file, output)
	if parseErr != nil {
		if runErr != nil {
			return nil, errors.DiagnosisUnavailableError(file, runErr)
		}
		return nil, errors.DiagnosisUnavailableError(file, parseErr)
	}

	p.log.Debug("%s: %d issues", file, len(issues))
	return issues, nil
}

type ruffIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

// parseRuffOutput converts ruff's JSON array into issues attributed to
// file.
func parseRuffOutput(file string, output []byte) ([]Issue, error) {
	if len(output) == 0 {
		return nil, nil
	}

	var raw []ruffIssue
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		issues = append(issues, Issue{
			File:     file,
			Line:     r.Location.Row,
			Column:   r.Location.Column,
			Code:     r.Code,
			Severity: SeverityError,
			Message:  r.Message,
			Source:   ruffSource,
		})
	}
	return issues, nil
}
