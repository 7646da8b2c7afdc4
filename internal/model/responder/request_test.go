package responder_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/model/responder"
)

func TestProcessRequestValidate(t *testing.T) {
	req := responder.ProcessRequest{Prompt: "   ", Mode: ""}.Normalize()
	assert.Equal(t, chat.ModeText, req.Mode)

	err := req.Validate()
	require.Error(t, err)
	assert.True(t, responder.PromptMissing(err))

	err = responder.ProcessRequest{Prompt: "hi", Mode: "hologram"}.Validate()
	require.Error(t, err)
	assert.False(t, responder.PromptMissing(err))

	assert.NoError(t, responder.ProcessRequest{Prompt: "hi", Mode: chat.ModeAudio}.Validate())
}

func TestProcessResponseDecoding(t *testing.T) {
	var resp responder.ProcessResponse
	require.NoError(t, json.Unmarshal([]byte(`{"response":"Here","video_url":null,"error":"Video generation failed."}`), &resp))

	assert.True(t, resp.HasError())
	assert.Equal(t, "Here", resp.Text())
	_, ok := resp.Video()
	assert.False(t, ok)
	assert.NoError(t, resp.Validate())

	var empty responder.ProcessResponse
	require.NoError(t, json.Unmarshal([]byte(`{"audio_url":"/a.mp3"}`), &empty))
	assert.ErrorIs(t, empty.Validate(), responder.ErrMalformedResponse)
}

func TestProcessResponseEncodingOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(responder.Reply("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hi"}`, string(data))

	data, err = json.Marshal(responder.Reply("hi").WithAudio("/static/audio/a.mp3"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hi","audio_url":"/static/audio/a.mp3"}`, string(data))
}
