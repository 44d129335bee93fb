package geminiservice

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	This is the core structure that tells Gemini how to format its JSON response
=================================================================================*/

// GeminiSchema defines the structure for "Controlled Generation" (Structured Output).
type GeminiSchema struct {
	// Type defines the data type (e.g., "OBJECT", "ARRAY", "STRING", "NUMBER").
	Type string `json:"type"`

	// Format specifies data format, primarily used for "enum" validation.
	Format string `json:"format,omitempty"`

	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (used when Type is "OBJECT").
	Properties map[string]*GeminiSchema `json:"properties,omitempty"`

	// Items defines the schema for elements within an array (used when Type is "ARRAY").
	Items *GeminiSchema `json:"items,omitempty"`

	// Required lists the field names that the AI MUST include in the response.
	Required []string `json:"required,omitempty"`

	Enum []string `json:"enum,omitempty"`
}

func enum(description string, values ...string) *GeminiSchema {
	return &GeminiSchema{Type: "STRING", Format: "enum", Description: description, Enum: values}
}

func str(description string) *GeminiSchema {
	return &GeminiSchema{Type: "STRING", Description: description}
}

/*
SystemPrompt defines the coach persona and the guardrails for the model.
*/
const SystemPrompt = `You are Trai, a concise fitness and nutrition coach inside a workout tracking app.
You write a single dashboard card for the user's current moment.

RULES:
1. Title: at most 6 words. Message: at most 2 short sentences.
2. Only reference facts present in the context packet or state fields. Never invent numbers.
3. Respect every constraint. If pain or recovery signals are present, never push intensity.
4. Prefer a question when the packet is thin, an action when the next step is obvious.
5. Use plan_proposal only for multi-day problems; propose at most 3 concrete changes.
6. Questions with options need at least 2 options. Sliders need max > min and step > 0.
   Notes allow at most 280 characters.
7. Action kinds must be one of: start_workout, browse_workouts, log_food, log_food_camera,
   log_weight, open_calorie_detail, open_macro_detail, complete_reminder, recovery_check,
   review_profile, review_nutrition_plan, review_workout_plan, open_progress, open_coach_chat,
   suggest_meal, plan_meals.
8. Output JSON only, matching the schema.`

/*
PulseContentSchema describes the exact JSON structure the model MUST output.
It mirrors the content contract validated by pulse.ParseContent.
*/
var PulseContentSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"surface_type": enum("Card type", "coach_note", "quick_checkin", "question", "action", "plan_proposal"),
		"title":        str("Short headline"),
		"message":      str("One or two sentences"),
		"prompt": {
			Type: "OBJECT",
			Properties: map[string]*GeminiSchema{
				"kind": enum("Interactive element", "question", "action", "plan_proposal", "none"),
				"question": {
					Type: "OBJECT",
					Properties: map[string]*GeminiSchema{
						"id":          str("Stable snake_case id"),
						"prompt":      str("Question text"),
						"input_mode":  enum("Answer input", "single_choice", "multiple_choice", "slider", "note"),
						"options":     {Type: "ARRAY", Items: str("Option label")},
						"min":         {Type: "NUMBER"},
						"max":         {Type: "NUMBER"},
						"step":        {Type: "NUMBER"},
						"unit":        str("Slider unit"),
						"max_length":  {Type: "INTEGER", Description: "Note length limit, at most 280"},
						"placeholder": str("Hint shown in an empty note field"),
						"is_required": {Type: "BOOLEAN"},
					},
					Required: []string{"prompt", "input_mode"},
				},
				"action": {
					Type: "OBJECT",
					Properties: map[string]*GeminiSchema{
						"kind":     str("One of the allowed action kinds"),
						"title":    str("Button label"),
						"subtitle": str("Optional detail"),
					},
					Required: []string{"kind", "title"},
				},
				"plan_proposal": {
					Type: "OBJECT",
					Properties: map[string]*GeminiSchema{
						"id":           str("Stable id"),
						"plan":         enum("Plan to change", "nutrition", "workout"),
						"title":        str("Proposal headline"),
						"rationale":    str("Why, grounded in the packet"),
						"impact":       str("Expected effect in one line"),
						"changes":      {Type: "ARRAY", Items: str("One concrete change")},
						"apply_label":  str("Accept button label"),
						"review_label": str("Review button label"),
						"defer_label":  str("Postpone button label"),
					},
					Required: []string{"plan", "title", "impact", "changes", "apply_label", "review_label", "defer_label"},
				},
			},
			Required: []string{"kind"},
		},
	},
	Required: []string{"title", "message"},
}
