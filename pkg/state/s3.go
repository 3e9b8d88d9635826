package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/app-sre/secret-expiration-notifier/pkg/aws"
	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var _ Persistence = &S3State{}

// S3State implements Persistence using AWS S3 as a backend
type S3State struct {
	basePath string
	infix    string
	config   s3StateConfig
	client   aws.Client
}

type s3StateConfig struct {
	Bucket string
}

func newS3StateConfig() *s3StateConfig {
	var s3c s3StateConfig
	sub := util.EnsureViperSub(viper.GetViper(), "state_s3")
	sub.BindEnv("bucket", "APP_INTERFACE_STATE_BUCKET")
	if err := sub.Unmarshal(&s3c); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	return &s3c
}

// S3StateBucket returns the configured state bucket, empty if S3 state is not configured
func S3StateBucket() string {
	return newS3StateConfig().Bucket
}

// NewS3State creates a new S3State Persistence object
func NewS3State(basePath, infix string, client aws.Client) *S3State {
	return &S3State{
		basePath: basePath,
		infix:    infix,
		client:   client,
		config:   *newS3StateConfig(),
	}
}

func (s *S3State) keyPath(key string) *string {
	return util.StrPointer(fmt.Sprintf("%s/%s/%s", s.basePath, s.infix, key))
}

func isNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// Exists checks if a given state exists in S3
func (s *S3State) Exists(ctx context.Context, key string) (bool, error) {
	util.Log().Debugw("Check key existence in bucket", "key", *s.keyPath(key), "bucket", s.config.Bucket)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.config.Bucket,
		Key:    s.keyPath(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Add adds a given state to S3
func (s *S3State) Add(ctx context.Context, key string, value interface{}) error {
	util.Log().Debugw("Putting key to bucket", "key", *s.keyPath(key), "bucket", s.config.Bucket)
	bytesOut, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.config.Bucket,
		Key:         s.keyPath(key),
		ContentType: util.StrPointer("application/json"),
		Body:        bytes.NewReader(bytesOut),
	})
	return err
}

// Get retrieves a state from S3
func (s *S3State) Get(ctx context.Context, key string, value interface{}) error {
	util.Log().Debugw("Getting key from bucket", "key", *s.keyPath(key), "bucket", s.config.Bucket)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:              &s.config.Bucket,
		Key:                 s.keyPath(key),
		ResponseContentType: util.StrPointer("application/json"),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(bodyBytes, value)
}

// Rm removes a state from S3
func (s *S3State) Rm(ctx context.Context, key string) error {
	util.Log().Debugw("Deleting key from bucket", "key", *s.keyPath(key), "bucket", s.config.Bucket)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.Bucket,
		Key:    s.keyPath(key),
	})
	return err
}
