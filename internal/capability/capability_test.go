package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-insights-go/internal/types"
)

func TestUnwrapText_ChoicesShape(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":"hello"}}]}`)
	text, err := UnwrapText(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestUnwrapText_OutputShape(t *testing.T) {
	body := []byte(`{"output":{"text":"hello"}}`)
	text, err := UnwrapText(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestUnwrapText_GatewayError(t *testing.T) {
	_, err := UnwrapText([]byte(`{"error":"model overloaded"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestUnwrapText_NoContent(t *testing.T) {
	_, err := UnwrapText([]byte(`{"choices":[]}`))
	require.Error(t, err)
}

func TestUnwrapEmbedding_BothShapes(t *testing.T) {
	flat, err := UnwrapEmbedding([]byte(`{"embedding":[0.1,0.2]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, flat)

	nested, err := UnwrapEmbedding([]byte(`{"data":[{"embedding":[0.3,0.4]}]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.4}, nested)
}

func TestAverageSegments_SkipsFailed(t *testing.T) {
	segments := []segmentVector{
		{Status: "ok", Embedding: []float64{1, 1}},
		{Status: "failed", Embedding: []float64{100, 100}},
		{Status: "", Embedding: []float64{3, 3}},
	}
	got, err := averageSegments(segments, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, got)
}

func TestAverageSegments_AllFailed(t *testing.T) {
	segments := []segmentVector{
		{Status: "failed", Embedding: []float64{1, 1}},
	}
	_, err := averageSegments(segments, 2)
	var rf *types.RemoteFailure
	require.True(t, errors.As(err, &rf))
}

func TestAverageSegments_WrongDimensionIsHardError(t *testing.T) {
	segments := []segmentVector{
		{Status: "ok", Embedding: []float64{1, 2, 3}},
	}
	_, err := averageSegments(segments, 2)
	var dm *types.DimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Got)
	assert.Equal(t, 2, dm.Want)
}

func TestParseTranscript_PlainText(t *testing.T) {
	tr := ParseTranscript("  just words spoken plainly  ")
	assert.Equal(t, "just words spoken plainly", tr.FullText)
	assert.Empty(t, tr.Segments)
}

func TestParseTranscript_TaggedSegments(t *testing.T) {
	raw := `<segment start="0.0" end="2.5" speaker="spk_0">hello everyone</segment>
<segment start="2.5" end="4.0" speaker="spk_1">hi there</segment>
<segment start="4.0" end="6.0" speaker="spk_0">welcome back</segment>`

	tr := ParseTranscript(raw)
	require.Len(t, tr.Segments, 3)
	assert.Equal(t, "hello everyone hi there welcome back", tr.FullText)
	assert.Equal(t, []string{"spk_0", "spk_1"}, tr.SpeakerLabels)
	assert.Equal(t, 2.5, tr.Segments[1].Start)
	assert.Equal(t, "spk_1", tr.Segments[1].Speaker)
}

func TestParseTranscript_MalformedTagsFallBackToVerbatim(t *testing.T) {
	raw := "<segment start=broken unclosed"
	tr := ParseTranscript(raw)
	assert.Equal(t, raw, tr.FullText)
	assert.Empty(t, tr.Segments)
}
