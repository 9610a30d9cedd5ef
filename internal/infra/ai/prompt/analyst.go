package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are an assistant that screens breast tissue histopathology images. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- prediction is exactly "Benign" or "Malignant".
- confidence is a number between 0 and 1 for the chosen prediction.
- explanations is an array of objects with a short title and a one or two sentence description of the visual evidence.
- If the image is not tissue or is unreadable, still answer with your best estimate and a low confidence, and say so in explanations.

Schema (example with empty values):
{
  "prediction": "<Benign|Malignant>",
  "confidence": 0.0,
  "explanations": [
    {"title": "<string>", "description": "<string>"}
  ]
}`
}

// GetUserPrompt builds a compact user message around the uploaded file name.
func GetUserPrompt(fileName string) string {
	return fmt.Sprintf("Classify the attached image and respond with the JSON per schema. File name: %s", fileName)
}

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON returns the JSON object in a model reply, tolerating code fences
// and surrounding prose. It returns "" when there is none.
func ExtractJSON(content string) string {
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return strings.TrimSpace(objectPattern.FindString(content))
}
