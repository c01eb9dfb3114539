package extraction

import (
	"context"
	"fmt"
	"image"
	"strings"

	"ai-health-advisor/internal/llm"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionRecognizer runs Cloud Vision DOCUMENT_TEXT_DETECTION on each page.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer dials Cloud Vision with application default or
// explicitly supplied credentials.
func NewVisionRecognizer(ctx context.Context, opts ...option.ClientOption) (*VisionRecognizer, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionRecognizer{client: client}, nil
}

func (v *VisionRecognizer) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: data},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
		}},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

func (v *VisionRecognizer) Close() error {
	return v.client.Close()
}

// TranscriberRecognizer adapts a multimodal model (Gemini) to TextRecognizer.
type TranscriberRecognizer struct {
	transcriber llm.ImageTranscriber
}

func NewTranscriberRecognizer(t llm.ImageTranscriber) *TranscriberRecognizer {
	return &TranscriberRecognizer{transcriber: t}
}

func (r *TranscriberRecognizer) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	text, err := r.transcriber.TranscribeImage(ctx, "image/jpeg", data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
