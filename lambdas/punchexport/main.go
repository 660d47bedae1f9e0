package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"punchexport.com/punchexport/punch/app"
	"punchexport.com/punchexport/punch/core"
)

func configPath() string {
	if path := os.Getenv("PUNCH_CONFIG"); path != "" {
		return path
	}
	return "punch.yaml"
}

// HandleRequest exports every change file named in the S3 notification.
func HandleRequest(ctx context.Context, event events.S3Event) ([]*core.RunReport, error) {
	a, err := app.Setup(ctx, configPath())
	if err != nil {
		return nil, err
	}
	defer a.Close()

	pipeline, err := a.Pipeline(ctx)
	if err != nil {
		return nil, err
	}

	var reports []*core.RunReport
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return reports, fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err)
		}
		source := fmt.Sprintf("s3://%s/%s", bucket, key)
		a.Log.Infof("processing %s", source)

		src, err := a.Open(ctx, source)
		if err != nil {
			return reports, err
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(src)
		src.Close()
		if err != nil {
			return reports, fmt.Errorf("failed to read %s: %w", source, err)
		}

		report, err := pipeline.Run(ctx, source, &buf)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
		return
	}

	if len(os.Args) < 2 {
		fmt.Println("[ERROR] usage: punchexport-lambda <file or s3 uri>")
		os.Exit(1)
	}
	ctx := context.Background()
	a, err := app.Setup(ctx, configPath())
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	pipeline, err := a.Pipeline(ctx)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	src, err := a.Open(ctx, os.Args[1])
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	report, err := pipeline.Run(ctx, os.Args[1], src)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	resJson, _ := json.MarshalIndent(report, "", "  ")
	fmt.Printf("[SUCCESS] Results:\n%s\n", string(resJson))
}
