package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client.
// Prefers ADC (service account / GOOGLE_APPLICATION_CREDENTIALS); explicit
// JSON can be supplied locally via GCS_CREDENTIALS_JSON.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ArchiveImportFile stores a received import file under
// imports/<date>/<filename> in the configured bucket and returns the object
// name. Archiving is best-effort; callers log and continue on error.
func ArchiveImportFile(ctx context.Context, filename string, data []byte) (string, error) {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		return "", errors.New("GCS_BUCKET is required")
	}

	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	objectName := fmt.Sprintf("imports/%s/%s", time.Now().UTC().Format("2006-01-02"), filename)

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentTypeForImport(filename)
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return objectName, nil
}

func contentTypeForImport(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}
