package pipeline

import (
	"github.com/sells-group/mydailyprop/internal/llm"
	"github.com/sells-group/mydailyprop/internal/model"
	"github.com/sells-group/mydailyprop/internal/prompt"
)

// DocumentSchema is the structure the extract stage asks the model to fill.
func DocumentSchema() llm.Schema {
	outlets := make([]string, 0, len(model.Outlets()))
	for _, o := range model.Outlets() {
		outlets = append(outlets, o.String())
	}

	return llm.Schema{
		Name:        "editorial",
		Description: "Contents of a newspaper editorial, copied verbatim from the page.",
		Prompt:      prompt.GetContents,
		Fields: []llm.SchemaField{
			{Name: "title", Type: llm.TypeString, Description: "The title of the editorial.", Required: true},
			{Name: "outlet", Type: llm.TypeString, Description: "The news outlet that published the editorial. Omit it when the outlet is not one of the listed values.", Enum: outlets},
			{Name: "date", Type: llm.TypeString, Description: "The publication date, formatted DD/MM-YYYY."},
			{Name: "language", Type: llm.TypeString, Description: "The language the editorial is written in, named in English."},
			{Name: "lede", Type: llm.TypeString, Description: "The introductory paragraph of the editorial.", Required: true},
			{Name: "body", Type: llm.TypeString, Description: "The full text of the editorial after the lede.", Required: true},
		},
	}
}
