package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	conv := uuid.New()
	cid := `"conversation_id":"` + conv.String() + `"`

	tests := []struct {
		name  string
		frame string
		want  Command
		err   error
	}{
		{"join", `{"type":"conversation.join",` + cid + `}`, JoinConversation{ConversationID: conv}, nil},
		{"leave", `{"type":"conversation.leave",` + cid + `}`, LeaveConversation{ConversationID: conv}, nil},
		{"send", `{"type":"message.send",` + cid + `,"payload":{"content":"hi"}}`, SendMessage{ConversationID: conv, Content: "hi"}, nil},
		{"send without payload", `{"type":"message.send",` + cid + `}`, SendMessage{ConversationID: conv}, nil},
		{"read", `{"type":"message.read",` + cid + `}`, MarkAsRead{ConversationID: conv}, nil},
		{"typing start", `{"type":"typing.start",` + cid + `}`, StartTyping{ConversationID: conv}, nil},
		{"typing stop", `{"type":"typing.stop",` + cid + `}`, StopTyping{ConversationID: conv}, nil},
		{"ping", `{"type":"ping"}`, Ping{}, nil},
		{"not json", `hello`, nil, ErrMalformedFrame},
		{"bad payload", `{"type":"message.send",` + cid + `,"payload":{"content":5}}`, nil, ErrMalformedFrame},
		{"missing conversation", `{"type":"conversation.join"}`, nil, ErrMissingConvID},
		{"unknown", `{"type":"conversation.delete",` + cid + `}`, nil, ErrUnknownCommand},
		{"unknown without conversation", `{"type":"presence"}`, nil, ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.frame))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestProtocolErrorCode(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"nope"}`))
	require.Equal(t, "UNKNOWN_EVENT", protocolErrorCode(err))

	_, err = DecodeCommand([]byte(`{"type":"typing.start"}`))
	require.Equal(t, "MISSING_CONVERSATION_ID", protocolErrorCode(err))

	_, err = DecodeCommand([]byte(`{`))
	require.Equal(t, "INVALID_PAYLOAD", protocolErrorCode(err))
}
