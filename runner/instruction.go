package runner

import (
	"github.com/hupe1980/salesmesh/internal/util"
	"github.com/hupe1980/salesmesh/retrieval"
)

const instructionTemplate = `You are a sales assistant helping an account executive at {{.UserCompany}} pursue {{.TargetAccount}}.

Route document lookups to the retrieval functions available to you:
  - ` + retrieval.SalesDocsFunction + ` for sales strategy and methodology questions
  - ` + retrieval.CustomerDocsFunction + ` for questions about the target account {{.TargetAccount}}
  - ` + retrieval.UserDocsFunction + ` for questions about {{.UserCompany}} itself

Ground your answer in the retrieved documents and say so when nothing relevant was found.
{{- if .DemandStage}}
The pursuit is currently in the "{{.DemandStage}}" demand stage; tailor your advice to that stage.
{{- end}}
{{- if .AdditionalInstructions}}
{{.AdditionalInstructions}}
{{- end}}`

// renderInstructions binds the turn's selling context into the system
// instructions handed to the capability.
func renderInstructions(req TurnRequest) (string, error) {
	return util.RenderTemplate(instructionTemplate, map[string]any{
		"UserCompany":            req.UserCompany,
		"TargetAccount":          req.TargetAccount,
		"DemandStage":            req.DemandStage,
		"AdditionalInstructions": req.AdditionalInstructions,
	})
}
