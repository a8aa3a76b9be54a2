package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/extract"
	"media-insights-go/internal/poll"
	"media-insights-go/internal/types"
)

// TranscribeClient drives the speech-to-text service: publish the media
// locator, poll the job to completion, download the transcript text. The
// service answers either plain text or <segment ...> tagged text.
type TranscribeClient struct {
	URL          string
	PollInterval time.Duration
	PollMaxWait  time.Duration
	Log          *logrus.Entry
}

type publishResponse struct {
	Code int `json:"code"`
	Data struct {
		MediaID       string `json:"media_id"`
		Status        string `json:"status"`
		TranscriptURL string `json:"transcript_url"`
	} `json:"data"`
	Reason string `json:"reason,omitempty"`
}

type transcribeStatusResponse struct {
	Data struct {
		Status        string `json:"status"`
		TranscriptURL string `json:"transcript_url"`
	} `json:"data"`
	Reason string `json:"reason,omitempty"`
}

// Transcribe runs the full publish/poll/download sequence for one media item.
func (c *TranscribeClient) Transcribe(ctx context.Context, locator types.SourceLocator) (*types.Transcript, error) {
	mediaID, existingURL, err := c.publish(ctx, locator)
	if err != nil {
		return nil, err
	}
	// The service may have transcribed this media before and short-circuits.
	if existingURL != "" {
		return c.download(ctx, existingURL)
	}

	var transcriptURL string
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		var s transcribeStatusResponse
		url := fmt.Sprintf("%s/getstatus?mediaId=%s", strings.TrimRight(c.URL, "/"), mediaID)
		if err := getJSON(ctx, url, &s, 10*time.Second); err != nil {
			return types.JobRunning, "", err
		}
		switch s.Data.Status {
		case "Success":
			transcriptURL = s.Data.TranscriptURL
			return types.JobCompleted, "", nil
		case "Failed":
			return types.JobFailed, s.Reason, nil
		default: // Queued, Processing
			return types.JobRunning, "", nil
		}
	}
	if err := poll.Wait(ctx, "transcription", check, c.PollInterval, c.PollMaxWait); err != nil {
		return nil, err
	}

	c.Log.WithField("transcript_url", transcriptURL).Info("transcription completed, downloading text")
	return c.download(ctx, transcriptURL)
}

func (c *TranscribeClient) publish(ctx context.Context, locator types.SourceLocator) (string, string, error) {
	endpoint := strings.TrimRight(c.URL, "/") + "/transcribe"

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	w.WriteField("mediaBucket", locator.Bucket)
	w.WriteField("mediaKey", locator.Key)
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
	if err != nil {
		return "", "", &types.RemoteFailure{Op: "transcription", Message: err.Error()}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", "", &types.RemoteFailure{Op: "transcription", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var pub publishResponse
	if err := decodeJSON(body, &pub); err != nil {
		return "", "", &types.RemoteFailure{Op: "transcription", Message: err.Error()}
	}
	if pub.Code != 200 {
		return "", "", &types.RemoteFailure{Op: "transcription",
			Message: fmt.Sprintf("publish rejected: code=%d reason=%s", pub.Code, pub.Reason)}
	}
	if pub.Data.TranscriptURL != "" && strings.EqualFold(pub.Data.Status, "success") {
		return "", pub.Data.TranscriptURL, nil
	}
	return pub.Data.MediaID, "", nil
}

func (c *TranscribeClient) download(ctx context.Context, url string) (*types.Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.RemoteFailure{Op: "transcription", Message: err.Error()}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &types.RemoteFailure{Op: "transcription", Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &types.RemoteFailure{Op: "transcription",
			Message: fmt.Sprintf("download failed: %s", truncate(b, 256))}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.RemoteFailure{Op: "transcription", Message: err.Error()}
	}
	return ParseTranscript(string(raw)), nil
}

// ParseTranscript turns the service's text output into a Transcript. Tagged
// output goes through the segment extractor; anything else is kept verbatim
// as the full text.
func ParseTranscript(raw string) *types.Transcript {
	tr := &types.Transcript{FullText: strings.TrimSpace(raw)}
	if !strings.Contains(raw, "<segment") {
		return tr
	}

	segs, err := extract.Segments(raw, extract.TagGrammar{
		Tag:          "segment",
		NumericAttrs: []string{"start", "end"},
	})
	if err != nil {
		// Tag-looking text that fails the grammar is still a usable transcript.
		return tr
	}

	speakers := map[string]bool{}
	var full []string
	for _, seg := range segs {
		s := types.TranscriptSegment{
			Start:   seg.Numeric["start"],
			End:     seg.Numeric["end"],
			Speaker: seg.Attrs["speaker"],
			Text:    seg.Text,
		}
		tr.Segments = append(tr.Segments, s)
		full = append(full, seg.Text)
		if s.Speaker != "" && !speakers[s.Speaker] {
			speakers[s.Speaker] = true
			tr.SpeakerLabels = append(tr.SpeakerLabels, s.Speaker)
		}
	}
	tr.FullText = strings.Join(full, " ")
	return tr
}

func decodeJSON(body []byte, target any) error {
	if len(body) == 0 {
		return fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, truncate(body, 256))
	}
	return nil
}
