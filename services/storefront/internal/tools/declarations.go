package tools

// ParameterLocationBody places a tool parameter in the request body of the call.
const ParameterLocationBody = "PARAMETER_LOCATION_BODY"

// SelectedTool is the declaration of a client-side tool in the voice agent
// call configuration.
type SelectedTool struct {
	TemporaryTool TemporaryTool `json:"temporaryTool"`
}

type TemporaryTool struct {
	ModelToolName     string             `json:"modelToolName"`
	Description       string             `json:"description"`
	DynamicParameters []DynamicParameter `json:"dynamicParameters"`
	Client            struct{}           `json:"client"`
}

type DynamicParameter struct {
	Name     string                 `json:"name"`
	Location string                 `json:"location"`
	Schema   map[string]interface{} `json:"schema"`
	Required bool                   `json:"required"`
}

// Declarations describes every registered tool for the voice agent.
func (r *ToolRegistry) Declarations() []SelectedTool {
	defs := r.Definitions()
	out := make([]SelectedTool, 0, len(defs))

	for _, def := range defs {
		params := make([]DynamicParameter, 0, len(def.Params))
		for _, p := range def.Params {
			schema := map[string]interface{}{}
			for k, v := range p.Schema {
				schema[k] = v
			}
			if p.Description != "" {
				schema["description"] = p.Description
			}
			params = append(params, DynamicParameter{
				Name:     p.Name,
				Location: ParameterLocationBody,
				Schema:   schema,
				Required: p.Required,
			})
		}

		out = append(out, SelectedTool{TemporaryTool: TemporaryTool{
			ModelToolName:     def.Name,
			Description:       def.Description,
			DynamicParameters: params,
		}})
	}

	return out
}

func orderDetailsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Nombre del producto tal como aparece en el menú.",
				},
				"quantity": map[string]interface{}{
					"type":        "number",
					"description": "Cantidad del producto, entre 1 y 10.",
				},
				"specialInstructions": map[string]interface{}{
					"type":        "string",
					"description": "Instrucciones especiales del cliente para este producto.",
				},
				"price": map[string]interface{}{
					"type":        "number",
					"description": "Precio unitario del producto en pesos.",
				},
			},
			"required": []string{"name", "quantity", "price"},
		},
	}
}
