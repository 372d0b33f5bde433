package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sngm3741/wanderlust/api/internal/listing/application"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoredImage describes a file streamed back from GridFS.
type StoredImage struct {
	Key         string
	ContentType string
	Length      int64
	UploadedAt  time.Time
}

// ImageStore は GridFS にリスティング画像を保存する。
// キーは <folder>/<uuid><ext>、公開 URL は <mediaBase>/images/<key>。
type ImageStore struct {
	db        *mongo.Database
	bucket    string
	folder    string
	mediaBase string
}

// NewImageStore binds a GridFS bucket. folder separates development and production uploads.
func NewImageStore(db *mongo.Database, bucketName, folder, mediaBase string) *ImageStore {
	return &ImageStore{
		db:        db,
		bucket:    bucketName,
		folder:    strings.Trim(folder, "/"),
		mediaBase: strings.TrimRight(mediaBase, "/"),
	}
}

// Upload writes the file and returns the image reference stored on the listing.
func (s *ImageStore) Upload(ctx context.Context, upload application.ImageUpload) (domain.Image, error) {
	bucket, err := s.openBucket(ctx)
	if err != nil {
		return domain.Image{}, err
	}

	key := path.Join(s.folder, uuid.NewString()+strings.ToLower(path.Ext(upload.Filename)))
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"contentType":  upload.ContentType,
		"originalName": path.Base(upload.Filename),
	})
	stream, err := bucket.OpenUploadStream(key, opts)
	if err != nil {
		return domain.Image{}, fmt.Errorf("open upload stream: %w", err)
	}
	if _, err := io.Copy(stream, upload.Body); err != nil {
		_ = stream.Abort()
		return domain.Image{}, fmt.Errorf("write image: %w", err)
	}
	if err := stream.Close(); err != nil {
		return domain.Image{}, fmt.Errorf("finalize image: %w", err)
	}

	return domain.Image{URL: s.URL(key), Filename: key}, nil
}

// Open はキーに対応するファイルのストリームを返す。呼び出し側で Close すること。
func (s *ImageStore) Open(ctx context.Context, key string) (io.ReadCloser, StoredImage, error) {
	bucket, err := s.openBucket(ctx)
	if err != nil {
		return nil, StoredImage{}, err
	}
	stream, err := bucket.OpenDownloadStreamByName(strings.TrimPrefix(key, "/"))
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, StoredImage{}, domain.ErrNotFound
		}
		return nil, StoredImage{}, err
	}

	file := stream.GetFile()
	info := StoredImage{
		Key:        file.Name,
		Length:     file.Length,
		UploadedAt: file.UploadDate,
	}
	if value, err := file.Metadata.LookupErr("contentType"); err == nil {
		info.ContentType, _ = value.StringValueOK()
	}
	return stream, info, nil
}

// Delete removes every revision stored under key. Missing keys are not an error.
func (s *ImageStore) Delete(ctx context.Context, key string) error {
	bucket, err := s.openBucket(ctx)
	if err != nil {
		return err
	}
	cursor, err := bucket.Find(bson.M{"filename": strings.TrimPrefix(key, "/")})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file gridfs.File
		if err := cursor.Decode(&file); err != nil {
			return err
		}
		if err := bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete image %s: %w", key, err)
		}
	}
	return cursor.Err()
}

// URL returns the public URL for a stored key.
func (s *ImageStore) URL(key string) string {
	return s.mediaBase + "/images/" + strings.TrimPrefix(key, "/")
}

// openBucket は GridFS v1 API がコンテキストを受け取らないため、期限をデッドラインとして設定する。
func (s *ImageStore) openBucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucket))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

// UploadFolder は環境ごとの保存フォルダ名を返す。
func UploadFolder(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "development") {
		return "wanderlust_DEV"
	}
	return "wanderlust_PROD"
}
