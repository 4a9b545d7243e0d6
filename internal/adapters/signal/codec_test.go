package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

func wire(t *testing.T, typ, payload string) wireMessage {
	t.Helper()
	return wireMessage{Type: typ, Payload: json.RawMessage(payload)}
}

func TestDecodeRosterSnapshot(t *testing.T) {
	ev, err := decode(wire(t, "roster-snapshot",
		`[{"id":"1","name":"Alice","role":"teacher","peerId":"pA","isMuted":false,"isVideoOn":true},
		  {"id":"2","name":"Bob","role":"student","peerId":"pB","isMuted":true,"isVideoOn":false}]`))
	require.NoError(t, err)

	snap, ok := ev.(core.RosterSnapshot)
	require.True(t, ok)
	require.Len(t, snap.Participants, 2)
	assert.Equal(t, domain.RoleTeacher, snap.Participants[0].Role)
	assert.Equal(t, domain.PeerID("pB"), snap.Participants[1].PeerID)
	assert.True(t, snap.Participants[1].IsMuted)
}

func TestDecodeParticipantLeft(t *testing.T) {
	ev, err := decode(wire(t, "participant-left", `{"id":"2","peerIdentity":"pB"}`))
	require.NoError(t, err)

	left, ok := ev.(core.ParticipantLeft)
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("2"), left.ID)
	assert.Equal(t, domain.PeerID("pB"), left.PeerID)
}

func TestDecodeParticipantUpdatedPartialPatch(t *testing.T) {
	ev, err := decode(wire(t, "participant-updated", `{"id":"2","isMuted":true}`))
	require.NoError(t, err)

	patched, ok := ev.(core.ParticipantPatched)
	require.True(t, ok)
	require.NotNil(t, patched.Patch.IsMuted)
	assert.True(t, *patched.Patch.IsMuted)
	assert.Nil(t, patched.Patch.IsVideoOn, "absent field stays untouched")
	assert.Nil(t, patched.Patch.Name)
}

func TestDecodeAnalysisReportDefaultsMissingFields(t *testing.T) {
	ev, err := decode(wire(t, "analysis-report",
		`{"peerIdentity":"p2","apiResponse":{"confidence_level":73}}`))
	require.NoError(t, err)

	rep, ok := ev.(core.AnalysisReported)
	require.True(t, ok)
	assert.Equal(t, domain.PeerID("p2"), rep.PeerID)
	assert.Equal(t, 73, rep.Result.ConfidenceLevel)
	assert.Zero(t, rep.Result.AttentionLevel)
	assert.Zero(t, rep.Result.ThinkingLevel)
	assert.False(t, rep.Result.IsDeviceDetected)
}

func TestDecodeNegotiationMessages(t *testing.T) {
	offer, err := decode(wire(t, "offer", `{"from":"pB","sdp":"v=0 offer"}`))
	require.NoError(t, err)
	assert.Equal(t, core.OfferReceived{From: "pB", SDP: "v=0 offer"}, offer)

	answer, err := decode(wire(t, "answer", `{"from":"pB","sdp":"v=0 answer"}`))
	require.NoError(t, err)
	assert.Equal(t, core.AnswerReceived{From: "pB", SDP: "v=0 answer"}, answer)

	cand, err := decode(wire(t, "candidate",
		`{"from":"pB","candidate":{"candidate":"candidate:1 1 udp 2 10.0.0.1 50000 typ host","sdpMid":"0","sdpMLineIndex":0}}`))
	require.NoError(t, err)
	got, ok := cand.(core.CandidateReceived)
	require.True(t, ok)
	assert.Equal(t, domain.PeerID("pB"), got.From)
	assert.Equal(t, "0", got.Candidate.SDPMid)
	assert.Contains(t, got.Candidate.Candidate, "typ host")
}

func TestDecodeUnknownTypeFails(t *testing.T) {
	_, err := decode(wire(t, "server-stats", `{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server-stats")
}

func TestDecodeMalformedPayloadFails(t *testing.T) {
	_, err := decode(wire(t, "roster-snapshot", `{"not":"a list"}`))
	require.Error(t, err)
}

func TestEncodeJoin(t *testing.T) {
	msg, err := encode(core.JoinRoom{
		RoomID:      "class-7",
		DisplayName: "Alice",
		Role:        domain.RoleStudent,
		PeerID:      "pA",
	})
	require.NoError(t, err)
	assert.Equal(t, "join", msg.Type)

	var p map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "class-7", p["roomId"])
	assert.Equal(t, "Alice", p["displayName"])
	assert.Equal(t, "student", p["role"])
	assert.Equal(t, "pA", p["peerIdentity"])
}

func TestEncodeAnalysisReportNestsResult(t *testing.T) {
	msg, err := encode(core.ReportAnalysis{
		RoomID: "class-7",
		PeerID: "pA",
		Result: domain.AnalysisResult{ConfidenceLevel: 42, AttentionLevel: 80, IsDeviceDetected: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "analysis-report", msg.Type)

	var p struct {
		PeerID      string                `json:"peerIdentity"`
		APIResponse domain.AnalysisResult `json:"apiResponse"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "pA", p.PeerID)
	assert.Equal(t, 42, p.APIResponse.ConfidenceLevel)
	assert.True(t, p.APIResponse.IsDeviceDetected)
}

func TestEncodeCandidateAddressesPeer(t *testing.T) {
	msg, err := encode(core.SendCandidate{
		To: "pB",
		Candidate: core.ICECandidate{
			Candidate: "candidate:1 1 udp 2 10.0.0.1 50000 typ host",
			SDPMid:    "0",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "candidate", msg.Type)

	var p candidatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, domain.PeerID("pB"), p.To)
	assert.Empty(t, p.From)
}

func TestEncodeTogglesCarryValue(t *testing.T) {
	msg, err := encode(core.ToggleMic{RoomID: "class-7", Value: true})
	require.NoError(t, err)
	assert.Equal(t, "toggle-mic", msg.Type)

	var p togglePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.True(t, p.Value)
}
