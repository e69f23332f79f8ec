package tool

// Kind is the closed set of tools the registry can dispatch to.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreateFile
	KindReplaceText
	KindShellExec
	KindRenderReport
)

const (
	NameCreateFile   = "create_file"
	NameReplaceText  = "str_replace"
	NameShellExec    = "shell_exec"
	NameRenderReport = "render_report"
)

// ParseKind maps a tool name requested by the model to its Kind. Any other
// name is KindUnknown.
func ParseKind(name string) Kind {
	switch name {
	case NameCreateFile:
		return KindCreateFile
	case NameReplaceText:
		return KindReplaceText
	case NameShellExec:
		return KindShellExec
	case NameRenderReport:
		return KindRenderReport
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindCreateFile:
		return NameCreateFile
	case KindReplaceText:
		return NameReplaceText
	case KindShellExec:
		return NameShellExec
	case KindRenderReport:
		return NameRenderReport
	default:
		return "unknown"
	}
}
