package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// UploadObject uploads bytes from r into bucket/objectPath with the provided contentType
func UploadObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader) error {
	wc := client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // small JSON documents
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// ObjectPath is where the snapshot of a deleted user is kept.
func ObjectPath(userID string, deletedAt time.Time) string {
	return path.Join("deleted-users", deletedAt.UTC().Format("2006/01/02"), userID+".json")
}

// DeletedUserArchive stores a JSON snapshot of every hard-deleted user,
// since the database keeps no trace of them.
type DeletedUserArchive struct {
	Client *storage.Client
	Bucket string
}

func NewDeletedUserArchive(client *storage.Client, bucket string) *DeletedUserArchive {
	return &DeletedUserArchive{Client: client, Bucket: bucket}
}

func (a *DeletedUserArchive) Archive(ctx context.Context, userID string, deletedAt time.Time, snapshot any) (string, error) {
	if a.Client == nil || a.Bucket == "" {
		return "", fmt.Errorf("gcs archive not configured")
	}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(json.NewEncoder(pw).Encode(snapshot))
	}()
	objectPath := ObjectPath(userID, deletedAt)
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := UploadObject(c, a.Client, a.Bucket, objectPath, "application/json", pr); err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.Bucket, objectPath), nil
}
