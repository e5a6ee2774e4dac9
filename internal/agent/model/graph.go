package model

// WorkflowState is threaded through the pipeline stages. It is owned by a
// single invocation; each stage receives a copy and returns a copy with only
// the fields it is responsible for changed.
type WorkflowState struct {
	ModuleName    string
	Question      string
	ContextObject any

	Traceback      string
	ModuleInfo     string
	ContextSummary string

	InitialAnswer  string
	NeedsWebSearch bool
	WebResults     string

	FinalAnswer string
}

// NewWorkflowState returns the input state for one run.
func NewWorkflowState(moduleName, question string, contextObj any) WorkflowState {
	return WorkflowState{
		ModuleName:    moduleName,
		Question:      question,
		ContextObject: contextObj,
	}
}
