/**
 * @description
 * This file contains the core business logic for the generation-service: the
 * five generation operations, each running the same protocol of validate ->
 * entitlement gate -> single provider call -> settle free-tier usage.
 */
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aihub/generation-service/internal/domain"
)

const defaultCodeLanguage = "javascript"

// Image requests are bounded so one call cannot fan out into an arbitrary
// number of provider samples.
const (
	minImageSamples = 1
	maxImageSamples = 4

	defaultImageResolution = "512x512"
)

var allowedResolutions = map[string]bool{
	"256x256":   true,
	"512x512":   true,
	"1024x1024": true,
}

// ChatModel produces a conversational reply from prior turns plus the new
// user prompt.
type ChatModel interface {
	Complete(ctx context.Context, history []domain.Message, prompt string) (string, error)
}

// CodeModel produces source code. Same wire contract as ChatModel, but bound
// to a model tuned for code so the two can be configured independently.
type CodeModel interface {
	Complete(ctx context.Context, history []domain.Message, prompt string) (string, error)
}

// ImageGenerator returns one base64-encoded PNG per requested sample, in
// provider order.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, samples, width, height int) ([]string, error)
}

// AudioGenerator synthesizes a fully buffered audio clip from a prompt and
// reports its declared content type.
type AudioGenerator interface {
	Compose(ctx context.Context, prompt string) (data []byte, contentType string, err error)
}

// VideoGenerator renders a fully buffered video clip from a prompt.
type VideoGenerator interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

// Service orchestrates the entitlement gate and the provider adapters.
type Service struct {
	entitlements *Entitlements
	chat         ChatModel
	code         CodeModel
	images       ImageGenerator
	audio        AudioGenerator
	video        VideoGenerator
	logger       *slog.Logger
}

// NewService wires the generation service. All dependencies are injected
// explicitly; there is no process-global client state.
func NewService(entitlements *Entitlements, chat ChatModel, code CodeModel, images ImageGenerator, audio AudioGenerator, video VideoGenerator, logger *slog.Logger) *Service {
	return &Service{
		entitlements: entitlements,
		chat:         chat,
		code:         code,
		images:       images,
		audio:        audio,
		video:        video,
		logger:       logger,
	}
}

// UsageStatus exposes the entitlement snapshot for GET /api/limit.
func (s *Service) UsageStatus(ctx context.Context, userID string) (*domain.UsageStatus, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.entitlements.Status(ctx, userID)
}

// Chat sends the conversation to the chat model and appends the model's reply
// as a new turn.
func (s *Service) Chat(ctx context.Context, userID string, messages []domain.Message) (*domain.ChatResponse, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	isPro, err := s.authorize(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, prompt := splitConversation(messages)
	reply, err := s.chat.Complete(ctx, history, prompt)
	if err != nil {
		s.logger.Error("chat provider call failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: chat completion", ErrProviderFailure)
	}

	if err := s.settle(ctx, userID, isPro); err != nil {
		return nil, err
	}
	return buildChatResponse(messages, reply), nil
}

// Code sends the conversation to the code model with a target-language hint
// and normalizes the reply down to its fenced code blocks.
func (s *Service) Code(ctx context.Context, userID string, messages []domain.Message, language string) (*domain.ChatResponse, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	isPro, err := s.authorize(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(language) == "" {
		language = defaultCodeLanguage
	}

	history, prompt := splitConversation(messages)
	enhanced := fmt.Sprintf(
		"Generate code in %s. Please provide clean, well-documented code with comments explaining key parts. Here's the request: %s",
		language, prompt,
	)

	reply, err := s.code.Complete(ctx, history, enhanced)
	if err != nil {
		s.logger.Error("code provider call failed", "user_id", userID, "language", language, "error", err)
		return nil, fmt.Errorf("%w: code completion", ErrProviderFailure)
	}

	if err := s.settle(ctx, userID, isPro); err != nil {
		return nil, err
	}
	return buildChatResponse(messages, extractCodeBlocks(reply)), nil
}

// Image generates 1-4 samples at an enumerated resolution and returns them as
// inline PNG data URIs in provider order.
func (s *Service) Image(ctx context.Context, userID, prompt, amount, resolution string) (*domain.ImageResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	samples := parseImageAmount(amount)
	width, height := parseResolution(resolution)

	isPro, err := s.authorize(ctx, userID)
	if err != nil {
		return nil, err
	}

	payloads, err := s.images.Generate(ctx, prompt, samples, width, height)
	if err != nil {
		s.logger.Error("image provider call failed", "user_id", userID, "samples", samples, "error", err)
		return nil, fmt.Errorf("%w: image generation", ErrProviderFailure)
	}
	if len(payloads) == 0 {
		s.logger.Error("image provider returned no artifacts", "user_id", userID)
		return nil, fmt.Errorf("%w: no artifacts returned", ErrProviderFailure)
	}

	if err := s.settle(ctx, userID, isPro); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(payloads))
	for _, p := range payloads {
		urls = append(urls, "data:image/png;base64,"+p)
	}
	return &domain.ImageResponse{ImageURLs: urls}, nil
}

// Music synthesizes an audio clip and returns the drained bytes plus the
// provider's declared content type.
func (s *Service) Music(ctx context.Context, userID, prompt string) (*domain.AudioResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	isPro, err := s.authorize(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, contentType, err := s.audio.Compose(ctx, prompt)
	if err != nil {
		s.logger.Error("music provider call failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: music generation", ErrProviderFailure)
	}
	if len(data) == 0 {
		s.logger.Error("music provider returned an empty stream", "user_id", userID)
		return nil, fmt.Errorf("%w: empty audio stream", ErrProviderFailure)
	}

	if err := s.settle(ctx, userID, isPro); err != nil {
		return nil, err
	}
	return &domain.AudioResult{Data: data, ContentType: contentType}, nil
}

// Video renders a clip and returns it embedded as an MP4 data URI.
func (s *Service) Video(ctx context.Context, userID, prompt string) (*domain.VideoResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	isPro, err := s.authorize(ctx, userID)
	if err != nil {
		return nil, err
	}

	clip, err := s.video.Render(ctx, prompt)
	if err != nil {
		s.logger.Error("video provider call failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: video generation", ErrProviderFailure)
	}
	if len(clip) == 0 {
		s.logger.Error("video provider returned an empty stream", "user_id", userID)
		return nil, fmt.Errorf("%w: empty video stream", ErrProviderFailure)
	}

	if err := s.settle(ctx, userID, isPro); err != nil {
		return nil, err
	}
	return &domain.VideoResponse{
		Video: "data:video/mp4;base64," + base64.StdEncoding.EncodeToString(clip),
	}, nil
}

// authorize runs the composite gate: subscribers pass unconditionally, free
// tier users pass while their counter is below the limit. Any datastore error
// propagates so the request fails closed rather than granting entitlement.
func (s *Service) authorize(ctx context.Context, userID string) (isPro bool, err error) {
	if userID == "" {
		return false, ErrUnauthenticated
	}

	isPro, err = s.entitlements.IsSubscribed(ctx, userID)
	if err != nil {
		return false, err
	}
	if isPro {
		return true, nil
	}

	withinLimit, err := s.entitlements.IsWithinFreeLimit(ctx, userID)
	if err != nil {
		return false, err
	}
	if !withinLimit {
		return false, ErrQuotaExceeded
	}
	return false, nil
}

// settle consumes one free-tier unit after a successful provider call.
// Subscribers never touch the counter. A request that loses the race for the
// last unit is rejected here even though its provider call succeeded; the
// counter invariant outranks the wasted call.
func (s *Service) settle(ctx context.Context, userID string, isPro bool) error {
	if isPro {
		return nil
	}
	return s.entitlements.ConsumeFreeUsage(ctx, userID)
}

// validateMessages rejects an empty conversation or one whose latest turn has
// no text to send.
func validateMessages(messages []domain.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages are required", ErrInvalidRequest)
	}
	last := messages[len(messages)-1]
	if len(last.Parts) == 0 || strings.TrimSpace(last.Parts[0].Text) == "" {
		return fmt.Errorf("%w: last message has no text", ErrInvalidRequest)
	}
	return nil
}

// splitConversation separates the prior turns from the new user prompt.
func splitConversation(messages []domain.Message) (history []domain.Message, prompt string) {
	history = messages[:len(messages)-1]
	prompt = messages[len(messages)-1].Parts[0].Text
	return history, prompt
}

func buildChatResponse(messages []domain.Message, reply string) *domain.ChatResponse {
	modelTurn := domain.Message{
		Role:  "model",
		Parts: []domain.Part{{Text: reply}},
	}
	updated := make([]domain.Message, 0, len(messages)+1)
	updated = append(updated, messages...)
	updated = append(updated, modelTurn)

	return &domain.ChatResponse{
		Role:     modelTurn.Role,
		Parts:    modelTurn.Parts,
		Messages: updated,
	}
}

// parseImageAmount accepts the UI's enumerated strings ("1".."4") and clamps
// anything out of range instead of rejecting it.
func parseImageAmount(amount string) int {
	n, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return minImageSamples
	}
	if n < minImageSamples {
		return minImageSamples
	}
	if n > maxImageSamples {
		return maxImageSamples
	}
	return n
}

// parseResolution splits an enumerated "WxH" string, falling back to the
// default for anything outside the allowed set.
func parseResolution(resolution string) (width, height int) {
	res := strings.TrimSpace(resolution)
	if !allowedResolutions[res] {
		res = defaultImageResolution
	}
	parts := strings.SplitN(res, "x", 2)
	width, _ = strconv.Atoi(parts[0])
	height, _ = strconv.Atoi(parts[1])
	return width, height
}
