package taskloop

import (
	"fmt"
	"strings"
)

const planSystemPrompt = `You are a planning agent. You break a task into an ordered list of concrete steps
that an executor can carry out with three tools: create_file, str_replace and shell_exec.
The executor works inside a single workspace directory and can run Python scripts there.

Rules:
- Every step must be actionable with the tools above.
- Keep steps small and ordered; later steps may rely on the results of earlier ones.
- The last step always produces the final report.
- Reply with a single JSON document and nothing else.`

const planCreatePromptTemplate = `Create a plan for the following task.

Task:
%s

Reply in the following JSON format:
` + "```json" + `
{
  "thought": "Short reasoning about how to approach the task",
  "goal": "The overall goal",
  "steps": [
    {
      "title": "Short title",
      "description": "What to do in this step",
      "status": "pending"
    }
  ]
}
` + "```"

const planUpdatePromptTemplate = `Review the current plan and update it based on the progress so far.

Goal:
%s

Current plan:
` + "```json" + `
%s
` + "```" + `

Rules:
- Do not change or reorder steps whose status is "completed".
- You may rewrite, add or remove pending steps.
- New steps have the status "pending".
- Reply with the full updated plan as a single JSON document in the same format.`

const planCorrectionTemplate = `Your previous reply could not be parsed as a strict JSON plan. Reply with one valid JSON document only, without any additional text.
Error: %s
Previous reply (truncated):
%s`

const executeSystemPrompt = `You are an execution agent. You carry out exactly one step of a plan by calling tools.

Tools:
- create_file: write a file in the workspace (for example a Python script).
- str_replace: replace text that appears exactly once in a workspace file.
- shell_exec: run a shell command in the workspace (for example "python3 script.py").

Rules:
- Work only inside the workspace. Use relative paths.
- Inspect tool results and fix errors before moving on.
- When the step is done, stop calling tools and reply with a short summary of what was done and what was found.`

const executePromptTemplate = `Task:
%s

Current step:
%s`

const reportSystemPrompt = `You are a reporting agent. Using the observations above, write the final report for the task.

Rules:
- Save any charts as image files in the workspace before writing the report.
- Produce the report as a real %s file in the workspace. Use the render_report tool when it is available, or write and run a script with create_file and shell_exec.
- When the %s file exists, stop calling tools and reply with the report text.`

const reportCorrectionTemplate = `No %s file was found in the workspace. A text, markdown or HTML file is not accepted as the report.
Create the real %s file now by calling the tools, and only stop calling tools once it exists.`

func buildCreatePrompt(task string) string {
	return fmt.Sprintf(planCreatePromptTemplate, task)
}

func buildUpdatePrompt(plan *Plan) string {
	return fmt.Sprintf(planUpdatePromptTemplate, plan.Goal, plan.String())
}

func buildCorrectionPrompt(perr *ParseError) string {
	return fmt.Sprintf(planCorrectionTemplate, perr.Error(), perr.Snippet)
}

func buildExecutePrompt(task string, step *Step) string {
	desc := step.Description
	if step.Title != "" {
		desc = step.Title + ": " + desc
	}
	return fmt.Sprintf(executePromptTemplate, task, desc)
}

func buildReportSystemPrompt(ext string) string {
	name := strings.ToUpper(strings.TrimPrefix(ext, "."))
	return fmt.Sprintf(reportSystemPrompt, name, name)
}

func buildReportCorrection(ext string) string {
	name := strings.ToUpper(strings.TrimPrefix(ext, "."))
	return fmt.Sprintf(reportCorrectionTemplate, name, name)
}

// buildTaskContext appends the location of the input artifact to the task.
func buildTaskContext(task, inputPath string) string {
	if inputPath == "" {
		return task
	}
	return task + "\n\nThe input data is available in the workspace at: " + inputPath
}
