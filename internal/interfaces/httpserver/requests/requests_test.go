package requests

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/conversation"
)

func TestChatRequest_ParseMessages(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
		wantLen int
	}{
		{name: "missing", body: `{}`, wantErr: "messages is required"},
		{name: "null", body: `{"messages":null}`, wantErr: "messages is required"},
		{name: "object", body: `{"messages":{"role":"user"}}`, wantErr: "messages must be a list"},
		{name: "string", body: `{"messages":"hi"}`, wantErr: "messages must be a list"},
		{name: "empty", body: `{"messages":[]}`, wantErr: "messages must not be empty"},
		{name: "bad role", body: `{"messages":[{"role":"system","text":"x"}]}`, wantErr: "messages[0]"},
		{name: "bad element", body: `{"messages":[42]}`, wantErr: "messages:"},
		{name: "shorthand", body: `{"messages":[{"role":"user","text":"Look at CLM-1001"}]}`, wantLen: 1},
		{
			name: "parts",
			body: `{"messages":[{"role":"user","text":"hi"},{"id":"m2","role":"assistant","parts":[{"type":"text","text":"hello"}]}]}`,
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ChatRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			messages, err := req.ParseMessages()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, messages, tt.wantLen)
		})
	}
}

func TestChatRequest_ShorthandBecomesTextPart(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages":[{"role":"user","text":"hi"}],"claimId":" CLM-1001 "}`), &req))

	messages, err := req.ParseMessages()
	require.NoError(t, err)
	require.Len(t, messages[0].Parts, 1)
	assert.Equal(t, conversation.PartTypeText, messages[0].Parts[0].Type)
	assert.Equal(t, "hi", messages[0].Text())
	assert.Equal(t, "CLM-1001", req.Claim())
	assert.Empty(t, req.Conversation())
}
