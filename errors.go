package taskloop

import "errors"

var (
	ErrInvalidTool      = errors.New("invalid tool specification")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrParse is the root of every structured output failure. A *ParseError
	// matches it with errors.Is.
	ErrParse = errors.New("failed to parse structured output")

	// ErrPlanCreation is returned by Orchestrator.Run when the initial plan
	// cannot be obtained. It is the only fatal outcome of a run.
	ErrPlanCreation = errors.New("failed to create plan")

	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArgument  = errors.New("invalid tool argument")
	ErrEmptyResponse    = errors.New("empty response from LLM")
	ErrInputUnavailable = errors.New("input artifact is not available")
)
