package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fiverflow/pkg/models"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
)

// ErrNoText is returned when a scan yields no recognizable text
var ErrNoText = errors.New("no text recognized")

const maxScanDimension = 1000

// Service turns scanned invoices into draft line items
type Service struct {
	client *computervision.BaseClient
}

// NewService creates a new OCR service
func NewService(endpoint, apiKey string) *Service {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &Service{client: &client}
}

// Enhance prepares a scanned image for OCR and returns it JPEG-encoded
func Enhance(r io.Reader) ([]byte, error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Grayscale and contrast first, then sharpen the glyph edges.
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	b := img.Bounds()
	if b.Dx() > maxScanDimension || b.Dy() > maxScanDimension {
		img = imaging.Fit(img, maxScanDimension, maxScanDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractText performs OCR on an image and returns the extracted text lines
func (s *Service) ExtractText(ctx context.Context, image []byte) ([]models.TextLine, error) {
	result, err := s.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(image)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	return extractTextFromOCRResult(result), nil
}

// Scan enhances the image, recognizes its text and parses it into line items
func (s *Service) Scan(ctx context.Context, r io.Reader) ([]models.InvoiceLine, error) {
	img, err := Enhance(r)
	if err != nil {
		return nil, err
	}

	lines, err := s.ExtractText(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoText
	}

	return ParseLines(lines), nil
}

// extractTextFromOCRResult extracts text lines with position information from OCR result
func extractTextFromOCRResult(result computervision.OcrResult) []models.TextLine {
	var textLines []models.TextLine
	if result.Regions == nil {
		return textLines
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			var boundingBox []int
			if line.BoundingBox != nil {
				for _, part := range strings.Split(*line.BoundingBox, ",") {
					val, _ := strconv.Atoi(part)
					boundingBox = append(boundingBox, val)
				}
			}

			var words []string
			if line.Words != nil {
				for _, word := range *line.Words {
					if word.Text != nil {
						words = append(words, *word.Text)
					}
				}
			}

			if len(boundingBox) >= 4 {
				textLines = append(textLines, models.TextLine{
					Text:   strings.Join(words, " "),
					X:      boundingBox[0],
					Y:      boundingBox[1],
					Width:  boundingBox[2],
					Height: boundingBox[3],
				})
			}
		}
	}
	return textLines
}
