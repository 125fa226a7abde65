package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

const (
	// DefaultModelID is the Titan image generator on Bedrock.
	DefaultModelID = "amazon.titan-image-generator-v1"

	// requestTimeout bounds one InvokeModel call; expiry surfaces as a
	// service_unavailable error.
	requestTimeout = 60 * time.Second
)

// titanRequest is the Titan TEXT_IMAGE request body.
type titanRequest struct {
	TaskType              string      `json:"taskType"`
	TextToImageParams     titanParams `json:"textToImageParams"`
	ImageGenerationConfig titanConfig `json:"imageGenerationConfig"`
}

type titanParams struct {
	Text string `json:"text"`
}

type titanConfig struct {
	NumberOfImages int     `json:"numberOfImages"`
	Quality        string  `json:"quality"`
	CfgScale       float64 `json:"cfgScale"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	Seed           int64   `json:"seed"`
}

type titanResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error"`
}

// BedrockClient generates one image per prompt through AWS Bedrock.
// Credentials come from the default AWS chain (env, shared config, IAM
// role); the client never manages them itself.
type BedrockClient struct {
	runtime  *bedrockruntime.Client
	modelID  string
	imageDir string
	urlBase  string
	seed     int64
}

// NewBedrockClient builds a client that writes generated PNGs into
// imageDir and returns handles rooted at urlBase (e.g. "/static").
func NewBedrockClient(ctx context.Context, region, modelID, imageDir, urlBase string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if modelID == "" {
		modelID = DefaultModelID
	}
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &BedrockClient{
		runtime:  bedrockruntime.NewFromConfig(cfg),
		modelID:  modelID,
		imageDir: imageDir,
		urlBase:  urlBase,
		seed:     rand.Int63n(2147483648),
	}, nil
}

// Generate requests one 512x512 illustration for prompt, saves it under a
// fresh filename, and returns its URL path. It issues exactly one external
// call; deduplication and retry policy live in the cache.
func (c *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(titanRequest{
		TaskType:          "TEXT_IMAGE",
		TextToImageParams: titanParams{Text: prompt},
		ImageGenerationConfig: titanConfig{
			NumberOfImages: 1,
			Quality:        "standard",
			CfgScale:       8.0,
			Height:         512,
			Width:          512,
			Seed:           c.seed,
		},
	})
	if err != nil {
		return "", &Error{Kind: KindInvalidPrompt, Err: err}
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", classify(err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", &Error{Kind: KindServiceUnavailable, Err: fmt.Errorf("decode model response: %w", err)}
	}
	if len(resp.Images) == 0 {
		return "", &Error{Kind: KindInvalidPrompt, Err: fmt.Errorf("model returned no image: %s", resp.Error)}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Images[0])
	if err != nil {
		return "", &Error{Kind: KindServiceUnavailable, Err: fmt.Errorf("decode image data: %w", err)}
	}

	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(c.imageDir, name), data, 0o644); err != nil {
		return "", &Error{Kind: KindServiceUnavailable, Err: fmt.Errorf("save image: %w", err)}
	}
	return path.Join(c.urlBase, name), nil
}

// classify maps Bedrock failures onto the error taxonomy. Content-filter
// rejections arrive as validation errors.
func classify(err error) error {
	var throttled *types.ThrottlingException
	var quota *types.ServiceQuotaExceededException
	if errors.As(err, &throttled) || errors.As(err, &quota) {
		return &Error{Kind: KindRateLimited, Err: err}
	}

	var invalid *types.ValidationException
	if errors.As(err, &invalid) {
		return &Error{Kind: KindInvalidPrompt, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ThrottlingException" {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	return &Error{Kind: KindServiceUnavailable, Err: err}
}
