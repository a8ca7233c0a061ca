/**
 * @description
 * This file defines the core domain models for the generation-service.
 * It includes the normalized message shapes shared by the chat and code
 * capabilities and the request/response DTOs for every generation endpoint.
 */
package domain

import (
	"bytes"
	"encoding/json"
)

// Part is a single text fragment inside a message.
type Part struct {
	Text string `json:"text"`
}

// Message is one turn in a conversation, normalized across providers.
// Role is either "user" or "model".
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// CodeRequest is the body of POST /api/code. Language is an optional hint
// for the target language of the generated code.
type CodeRequest struct {
	Messages []Message `json:"messages"`
	Language string    `json:"language,omitempty"`
}

// ChatResponse is the reply shape shared by the chat and code endpoints.
// It carries the new model turn plus the full updated message list so the
// client can replace its local history in one step.
type ChatResponse struct {
	Role     string    `json:"role"`
	Parts    []Part    `json:"parts"`
	Messages []Message `json:"messages"`
}

// Amount is a sample count that clients send either as a JSON string ("2")
// or a JSON number (2). Both decode to the decimal string form.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// ImageRequest is the body of POST /api/image. Amount and Resolution arrive
// from the UI as enumerated strings ("1".."4", "512x512") but numeric JSON
// values are accepted as well.
type ImageRequest struct {
	Prompt     string `json:"prompt"`
	Amount     Amount `json:"amount,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// ImageResponse carries one data URI per generated sample, in provider order.
type ImageResponse struct {
	ImageURLs []string `json:"imageUrls"`
}

// PromptRequest is the body of the music and video endpoints.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// VideoResponse embeds the generated clip as a base64 data URI.
type VideoResponse struct {
	Video string `json:"video"`
}

// AudioResult is the normalized output of the music capability: a fully
// drained binary payload plus its declared content type.
type AudioResult struct {
	Data        []byte
	ContentType string
}
