// Package voice turns spoken answers into text for grading.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/abhisek/brigade/internal/blob"
	"github.com/abhisek/brigade/internal/grading"
)

// DefaultMaxBytes bounds an uploaded clip (25 MB, the transcription API
// limit).
const DefaultMaxBytes = 25 << 20

var (
	ErrEmptyAudio    = errors.New("audio clip is empty")
	ErrAudioTooLarge = errors.New("audio clip is too large")
)

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// OpenAITranscriber uses the OpenAI audio transcription endpoint.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

// NewOpenAITranscriber creates a transcriber. baseURL may be empty.
func NewOpenAITranscriber(apiKey, baseURL string) *OpenAITranscriber {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAITranscriber{client: openai.NewClientWithConfig(config), model: openai.Whisper1}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: "en",
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Clip is one recorded answer.
type Clip struct {
	SessionID   string
	QuestionID  string
	Filename    string
	ContentType string
	Data        []byte

	// Archive keeps the recording. Only set when the trainee consented.
	Archive bool
}

// Service transcribes clips and archives consented recordings.
type Service struct {
	transcriber Transcriber
	archive     blob.Store
	logger      *slog.Logger
	maxBytes    int
}

// NewService creates a voice service. archive may be nil.
func NewService(tr Transcriber, archive blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{transcriber: tr, archive: archive, logger: logger, maxBytes: DefaultMaxBytes}
}

// Transcribe returns the clip's text. Transcription failures are
// *grading.TransportError. Archiving is best effort.
func (s *Service) Transcribe(ctx context.Context, clip Clip) (string, error) {
	switch {
	case len(clip.Data) == 0:
		return "", ErrEmptyAudio
	case len(clip.Data) > s.maxBytes:
		return "", fmt.Errorf("%w: %d bytes", ErrAudioTooLarge, len(clip.Data))
	}
	if clip.Filename == "" {
		clip.Filename = "answer.webm"
	}

	text, err := s.transcriber.Transcribe(ctx, clip.Filename, clip.Data)
	if err != nil {
		return "", &grading.TransportError{Err: err}
	}

	if clip.Archive && s.archive != nil {
		key := ArchiveKey(clip)
		err := s.archive.Put(context.WithoutCancel(ctx), key, bytes.NewReader(clip.Data), int64(len(clip.Data)), clip.ContentType)
		if err != nil {
			s.logger.Warn("failed to archive voice answer", "key", key, "error", err)
		}
	}
	return text, nil
}

// ArchiveKey is where a clip is stored: voice/<session>/<question><ext>.
func ArchiveKey(clip Clip) string {
	return path.Join("voice", clip.SessionID, clip.QuestionID+path.Ext(clip.Filename))
}
