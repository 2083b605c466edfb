package ai

import "encoding/json"

// replySchema ограничивает ответ модели форматом Reply.
var replySchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "message": {"type": "STRING", "description": "Freddy's response. Concise, clear, and slightly refined."},
    "actions": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "type": {
            "type": "STRING",
            "enum": ["LOG_EXPENSE", "CREATE_BUDGET", "REQUEST_BUDGET_CREATION", "TRANSFER_BUDGET", "GIVE_ADVICE", "NONE"]
          },
          "data": {
            "type": "OBJECT",
            "nullable": true,
            "properties": {
              "amount": {"type": "NUMBER"},
              "limit": {"type": "NUMBER"},
              "category": {"type": "STRING"},
              "item": {"type": "STRING"},
              "fromCategory": {"type": "STRING"},
              "toCategory": {"type": "STRING"},
              "advice": {"type": "STRING"}
            }
          }
        },
        "required": ["type"]
      }
    }
  },
  "required": ["message", "actions"]
}`)
