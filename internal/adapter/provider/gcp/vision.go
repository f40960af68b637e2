package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// annotateClient is the subset of *vision.ImageAnnotatorClient used here.
type annotateClient interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// Labeler detects what an image shows with Cloud Vision label detection.
type Labeler struct {
	client     annotateClient
	log        *slog.Logger
	maxRetries int
}

// NewLabeler wraps an existing client.
func NewLabeler(client annotateClient, logger *slog.Logger) *Labeler {
	return &Labeler{client: client, log: logger.With("adapter", "gcp.vision"), maxRetries: 2}
}

// DialLabeler opens a Vision image annotator client.
func DialLabeler(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Labeler, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return NewLabeler(c, logger), nil
}

// Labels returns up to maxLabels label descriptions for the image at
// imageURL, most confident first.
func (l *Labeler) Labels(ctx context.Context, imageURL string, maxLabels int) ([]string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{
				Source: &visionpb.ImageSource{ImageUri: imageURL},
			},
			Features: []*visionpb.Feature{{
				Type:       visionpb.Feature_LABEL_DETECTION,
				MaxResults: int32(maxLabels),
			}},
		}},
	}

	resp, err := retry(ctx, l.maxRetries, func() (*visionpb.BatchAnnotateImagesResponse, error) {
		return l.client.BatchAnnotateImages(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return []string{}, nil
	}

	r := resp.GetResponses()[0]
	if e := r.GetError(); e != nil && e.GetCode() != 0 {
		return nil, fmt.Errorf("vision annotate: code %d: %s", e.GetCode(), e.GetMessage())
	}

	labels := make([]string, 0, len(r.GetLabelAnnotations()))
	for _, a := range r.GetLabelAnnotations() {
		if d := strings.TrimSpace(a.GetDescription()); d != "" {
			labels = append(labels, d)
		}
		if len(labels) == maxLabels {
			break
		}
	}

	l.log.DebugContext(ctx, "labels detected", slog.String("image", imageURL), slog.Int("count", len(labels)))
	return labels, nil
}

// Close releases the underlying client.
func (l *Labeler) Close() error {
	return l.client.Close()
}
