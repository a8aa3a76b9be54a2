package capability

import (
	"encoding/json"
	"fmt"
)

// The model gateways answer in a small set of envelope shapes. Each shape is
// unwrapped in exactly one place here; call sites never probe response maps
// themselves.

// TextEnvelope is the chat-completion response shape.
type TextEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
	Error string `json:"error,omitempty"`
}

// UnwrapText returns the completion text carried by body.
func UnwrapText(body []byte) (string, error) {
	var env TextEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode text envelope: %w", err)
	}
	if env.Error != "" {
		return "", fmt.Errorf("gateway error: %s", env.Error)
	}
	if len(env.Choices) > 0 && env.Choices[0].Message.Content != "" {
		return env.Choices[0].Message.Content, nil
	}
	if env.Output.Text != "" {
		return env.Output.Text, nil
	}
	return "", fmt.Errorf("text envelope carries no content")
}

// EmbeddingEnvelope is the synchronous embedding response shape.
type EmbeddingEnvelope struct {
	Embedding []float64 `json:"embedding"`
	Data      []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// UnwrapEmbedding returns the vector carried by body.
func UnwrapEmbedding(body []byte) ([]float64, error) {
	var env EmbeddingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode embedding envelope: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("gateway error: %s", env.Error)
	}
	if len(env.Embedding) > 0 {
		return env.Embedding, nil
	}
	if len(env.Data) > 0 && len(env.Data[0].Embedding) > 0 {
		return env.Data[0].Embedding, nil
	}
	return nil, fmt.Errorf("embedding envelope carries no vector")
}
