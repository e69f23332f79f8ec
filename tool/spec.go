package tool

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
)

func specOf(k Kind) *taskloop.ToolSpec {
	switch k {
	case KindCreateFile:
		return &taskloop.ToolSpec{
			Name:        NameCreateFile,
			Description: "Create a file in the workspace with the given contents. Parent directories are created and an existing file is overwritten.",
			Parameters: map[string]*taskloop.Parameter{
				"file_name": {
					Type:        taskloop.TypeString,
					Description: "Path of the file, relative to the workspace",
				},
				"file_contents": {
					Type:        taskloop.TypeString,
					Description: "The content to write to the file",
				},
			},
			Required: []string{"file_name", "file_contents"},
		}

	case KindReplaceText:
		return &taskloop.ToolSpec{
			Name:        NameReplaceText,
			Description: "Replace text in a workspace file. old_str must appear exactly once in the file.",
			Parameters: map[string]*taskloop.Parameter{
				"file_name": {
					Type:        taskloop.TypeString,
					Description: "Path of the target file, relative to the workspace",
				},
				"old_str": {
					Type:        taskloop.TypeString,
					Description: "Text to be replaced. It must appear exactly once.",
				},
				"new_str": {
					Type:        taskloop.TypeString,
					Description: "Replacement text",
				},
			},
			Required: []string{"file_name", "old_str", "new_str"},
		}

	case KindShellExec:
		return &taskloop.ToolSpec{
			Name:        NameShellExec,
			Description: "Run a shell command in the workspace directory. Returns exit code and a preview of stdout and stderr; the full output is saved to log_file.",
			Parameters: map[string]*taskloop.Parameter{
				"command": {
					Type:        taskloop.TypeString,
					Description: "The shell command to execute",
				},
			},
			Required: []string{"command"},
		}

	case KindRenderReport:
		return &taskloop.ToolSpec{
			Name:        NameRenderReport,
			Description: "Render the final report as a PDF: one page with the report text followed by one page per image in image_dir.",
			Parameters: map[string]*taskloop.Parameter{
				"report_text": {
					Type:        taskloop.TypeString,
					Description: "Full text of the report",
				},
				"image_dir": {
					Type:        taskloop.TypeString,
					Description: "Directory of chart images, relative to the workspace. Defaults to the workspace root.",
				},
				"output_file": {
					Type:        taskloop.TypeString,
					Description: "Path of the PDF to write, relative to the workspace",
				},
			},
			Required: []string{"report_text", "output_file"},
		}
	}
	return nil
}

// validateArgs checks that every required parameter is present and that
// every string parameter given is a string.
func validateArgs(spec *taskloop.ToolSpec, args map[string]any) error {
	for _, name := range spec.Required {
		if _, ok := args[name]; !ok {
			return goerr.Wrap(taskloop.ErrInvalidArgument, "missing required argument",
				goerr.V("tool", spec.Name),
				goerr.V("argument", name),
			)
		}
	}

	for name, param := range spec.Parameters {
		v, ok := args[name]
		if !ok || param.Type != taskloop.TypeString {
			continue
		}
		if _, isString := v.(string); !isString {
			return goerr.Wrap(taskloop.ErrInvalidArgument, "argument must be a string",
				goerr.V("tool", spec.Name),
				goerr.V("argument", name),
			)
		}
	}
	return nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
