package mockapi

// ConfigSchema is served by GET /runs/config_schema. Its shape follows the
// pydantic output of the real backend.
const ConfigSchema = `{
  "title": "RunnableConfigurableAlternativesConfig",
  "type": "object",
  "properties": {
    "configurable": {"$ref": "#/definitions/Configurable"}
  },
  "definitions": {
    "AgentType": {
      "title": "AgentType",
      "description": "An enumeration.",
      "enum": ["GPT 3.5 Turbo", "GPT 4", "Claude 2"],
      "type": "string"
    },
    "Configurable": {
      "title": "Configurable",
      "type": "object",
      "properties": {
        "type": {"title": "Bot Type", "default": "chatbot", "enum": ["chatbot", "chat_retrieval", "agent"], "type": "string"},
        "type==agent/agent_type": {"title": "Agent Type", "default": "GPT 3.5 Turbo", "allOf": [{"$ref": "#/definitions/AgentType"}]},
        "type==agent/system_message": {"title": "Instructions", "default": "You are a helpful assistant.", "type": "string"},
        "type==agent/interrupt_before_action": {"title": "Tool Confirmation", "description": "If Yes, you'll be prompted to continue before each tool is executed.", "default": false, "type": "boolean"},
        "type==agent/tools": {"title": "Tools", "type": "array", "items": {"type": "string"}},
        "type==chatbot/llm_type": {"title": "LLM Type", "default": "GPT 3.5 Turbo", "allOf": [{"$ref": "#/definitions/AgentType"}]},
        "type==chatbot/system_message": {"title": "Instructions", "default": "You are a helpful assistant.", "type": "string"},
        "type==chat_retrieval/temperature": {"title": "Temperature", "anyOf": [{"type": "null"}, {"type": "number"}]}
      }
    }
  }
}`
