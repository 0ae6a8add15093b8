package analyze

import "encoding/json"

// analysisSchema is the strict response_format sent with every analysis
// request. It forces the model into a fixed shape: call metadata, speech
// analysis (intents, sentiment, entities, issues), summary, and recommended
// actions.
var analysisSchema = json.RawMessage(`{
  "type": "json_schema",
  "json_schema": {
    "name": "conversation_analysis",
    "strict": true,
    "schema": {
      "type": "object",
      "properties": {
        "call_metadata": {
          "type": "object",
          "properties": {
            "language": {
              "type": "string",
              "enum": ["russian", "uzbek", "english"]
            }
          },
          "required": ["language"],
          "additionalProperties": false
        },
        "speech_analysis": {
          "type": "object",
          "properties": {
            "transcript": {"type": "string"},
            "intent_detection": {
              "type": "array",
              "items": {
                "type": "object",
                "properties": {
                  "intent": {"type": "string"},
                  "confidence_score": {"type": "number"}
                },
                "required": ["intent", "confidence_score"],
                "additionalProperties": false
              }
            },
            "sentiment_analysis": {
              "type": "object",
              "properties": {
                "customer_sentiment": {
                  "type": "string",
                  "enum": ["positive", "neutral", "negative"]
                },
                "agent_sentiment": {
                  "type": "string",
                  "enum": ["positive", "neutral", "negative"]
                }
              },
              "required": ["customer_sentiment", "agent_sentiment"],
              "additionalProperties": false
            },
            "entities_extracted": {
              "type": "array",
              "items": {
                "type": "object",
                "properties": {
                  "entity_type": {"type": "string"},
                  "value": {"type": "string"},
                  "confidence_score": {"type": "number"}
                },
                "required": ["entity_type", "value", "confidence_score"],
                "additionalProperties": false
              }
            },
            "issues_identified": {
              "type": "array",
              "items": {
                "type": "object",
                "properties": {
                  "issue_type": {"type": "string"},
                  "description": {"type": "string"}
                },
                "required": ["issue_type", "description"],
                "additionalProperties": false
              }
            }
          },
          "required": ["transcript", "intent_detection", "sentiment_analysis", "entities_extracted", "issues_identified"],
          "additionalProperties": false
        },
        "summary_analysis": {
          "type": "object",
          "properties": {
            "key_points": {
              "type": "array",
              "items": {"type": "string"}
            },
            "overall_sentiment": {
              "type": "string",
              "enum": ["positive", "neutral", "negative"]
            },
            "call_efficiency": {
              "type": "string",
              "enum": ["efficient", "average", "inefficient"]
            },
            "resolution_status": {
              "type": "string",
              "enum": ["resolved", "unresolved", "escalated"]
            }
          },
          "required": ["key_points", "overall_sentiment", "call_efficiency", "resolution_status"],
          "additionalProperties": false
        },
        "action_recommendations": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "action_type": {"type": "string"},
              "details": {"type": "string"}
            },
            "required": ["action_type", "details"],
            "additionalProperties": false
          }
        }
      },
      "required": ["call_metadata", "speech_analysis", "summary_analysis", "action_recommendations"],
      "additionalProperties": false
    }
  }
}`)
