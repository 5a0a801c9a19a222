package llm

import "encoding/json"

// Response schemas sent with every request. The models must return exactly
// these shapes; anything else goes through the malformed-response path.

var problemSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "problem_statement": {"type": "string"},
    "input_format": {"type": "string"},
    "output_format": {"type": "string"},
    "constraints": {
      "type": "array",
      "items": {"type": "string"}
    },
    "example_cases": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "input": {"type": "string"},
          "output": {"type": "string"}
        },
        "required": ["input", "output"],
        "additionalProperties": false
      }
    }
  },
  "required": ["problem_statement", "input_format", "output_format", "constraints", "example_cases"],
  "additionalProperties": false
}`)

var solutionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "thoughts": {
      "type": "array",
      "items": {"type": "string"},
      "maxItems": 5
    },
    "code": {"type": "string"},
    "time_complexity": {"type": "string"},
    "space_complexity": {"type": "string"}
  },
  "required": ["thoughts", "code", "time_complexity", "space_complexity"],
  "additionalProperties": false
}`)
